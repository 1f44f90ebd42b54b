package scrub

import (
	"fmt"
	"io"
)

// WriteRecord writes rec as a single NDJSON line with keys in sorted order.
func WriteRecord(w io.Writer, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record to JSON: %w", err)
	}

	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}
