package scrub

import (
	"context"
	stdjson "encoding/json"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/vaibhaw-/PiiGuard/internal/piiguard/classify"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/logger"
	metrics "github.com/vaibhaw-/PiiGuard/internal/piiguard/stats"
	"github.com/vaibhaw-/PiiGuard/internal/piiguard/viewer"
)

// Stats summarizes one scrub run.
type Stats struct {
	Records   int            `json:"records"`
	Malformed int            `json:"malformed"`
	Redacted  int            `json:"redacted_fields"`
	ByField   map[string]int `json:"by_field"`
}

func NewStats() *Stats {
	return &Stats{ByField: make(map[string]int)}
}

// Scrubber redacts the classified fields of records through a Presenter.
type Scrubber struct {
	classifier *classify.Classifier
	presenter  *viewer.Presenter
	log        *zap.SugaredLogger
}

func New(c *classify.Classifier, p *viewer.Presenter) *Scrubber {
	if c == nil {
		c = classify.Default()
	}
	if p == nil {
		p = viewer.NewPresenter(true, nil)
	}
	return &Scrubber{classifier: c, presenter: p, log: logger.L()}
}

// Record redacts rec in place and adds the redacted field names to stats.
// Nested objects are walked; their keys are classified on their own names.
func (s *Scrubber) Record(rec Record, stats *Stats) {
	s.walkObject(rec, stats)
}

func (s *Scrubber) walkObject(obj map[string]any, stats *Stats) {
	for field, value := range obj {
		class, matched := s.classifier.Match(field)
		switch v := value.(type) {
		case []any:
			s.walkArray(field, v, class, matched, stats)
		case map[string]any:
			s.walkObject(v, stats)
		default:
			if out, ok := s.scalar(v, class, matched); ok {
				obj[field] = out
				stats.count(field, s.presenter.Censoring())
			}
		}
	}
}

func (s *Scrubber) walkArray(field string, arr []any, class classify.Class, matched bool, stats *Stats) {
	for i, item := range arr {
		switch v := item.(type) {
		case []any:
			s.walkArray(field, v, class, matched, stats)
		case map[string]any:
			s.walkObject(v, stats)
		default:
			if out, ok := s.scalar(v, class, matched); ok {
				arr[i] = out
				stats.count(field, s.presenter.Censoring())
			}
		}
	}
}

// scalar redacts a matched leaf. Numbers and booleans under a PII field
// (a phone stored as 15551234567) are redacted as text and written back as
// strings; uncensored viewers keep the original value and type.
func (s *Scrubber) scalar(value any, class classify.Class, matched bool) (any, bool) {
	if !matched {
		return nil, false
	}

	var text string
	switch v := value.(type) {
	case string:
		return s.show(v, class), true
	case stdjson.Number:
		text = v.String()
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		text = strconv.FormatBool(v)
	default:
		return nil, false
	}

	if !s.presenter.Censoring() {
		return value, true
	}
	return s.show(text, class), true
}

func (s *Scrubber) show(value string, class classify.Class) string {
	if class.DetectIP {
		return s.presenter.ShowIP(value)
	}
	return s.presenter.Show(value, class.Kind)
}

func (st *Stats) count(field string, censored bool) {
	if !censored {
		return
	}
	st.Redacted++
	st.ByField[field]++
}

// Stream scrubs every record from in and writes it to w. Malformed lines
// are counted and dropped. A write failure or a cancelled context stops
// the run; the channel is drained in the background so its producer can
// exit.
func (s *Scrubber) Stream(ctx context.Context, in <-chan RecordResult, w io.Writer) (*Stats, error) {
	stats := NewStats()

	for {
		select {
		case <-ctx.Done():
			go drain(in)
			return stats, ctx.Err()
		case res, ok := <-in:
			if !ok {
				s.log.Debugw("Scrub finished",
					"records", stats.Records,
					"redacted_fields", stats.Redacted,
					"malformed", stats.Malformed)
				return stats, nil
			}
			if res.Err != nil {
				stats.Malformed++
				// parse errors can quote raw input
				s.log.Warnw("Skipping unreadable record", "malformed", stats.Malformed)
				continue
			}

			stats.Records++
			metrics.ScrubbedRecordsCounter.Inc()
			s.Record(res.Record, stats)
			if err := WriteRecord(w, res.Record); err != nil {
				go drain(in)
				return stats, err
			}
		}
	}
}

func drain(in <-chan RecordResult) {
	for range in {
	}
}
