// Package scrub redacts PII fields in NDJSON record streams, such as
// exports of connection logs or ban tables, before they leave the admin
// network.
package scrub

import (
	"bufio"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// Record is one decoded NDJSON line. Numbers are kept as json.Number so
// ids and timestamps survive a round trip unchanged.
type Record = map[string]any

// RecordResult carries either a decoded record or the error for one line.
type RecordResult struct {
	Record Record
	Err    error
}

var json = jsoniter.Config{
	EscapeHTML:             false,
	UseNumber:              true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// maxLineSize bounds a single NDJSON line.
const maxLineSize = 4 * 1024 * 1024

// ReadRecords reads NDJSON records from files, or stdin if files is empty.
//
// Files are processed in order. An unreadable file or a malformed line is
// reported on the channel and reading continues. The channel is closed once
// every input is exhausted.
func ReadRecords(files []string) <-chan RecordResult {
	ch := make(chan RecordResult, 100)

	go func() {
		defer close(ch)

		if len(files) == 0 {
			readFromReader(os.Stdin, "stdin", ch)
			return
		}

		for _, file := range files {
			f, err := os.Open(file)
			if err != nil {
				ch <- RecordResult{Err: fmt.Errorf("failed to open file %s: %w", file, err)}
				continue
			}
			readFromReader(f, file, ch)
			f.Close()
		}
	}()

	return ch
}

// ReadFrom is ReadRecords for a single reader.
func ReadFrom(r io.Reader, source string) <-chan RecordResult {
	ch := make(chan RecordResult, 100)
	go func() {
		defer close(ch)
		readFromReader(r, source, ch)
	}()
	return ch
}

func readFromReader(r io.Reader, source string, ch chan<- RecordResult) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			ch <- RecordResult{Err: fmt.Errorf("JSON parse error in %s line %d: %w", source, lineNumber, err)}
			continue
		}
		ch <- RecordResult{Record: rec}
	}

	if err := scanner.Err(); err != nil {
		ch <- RecordResult{Err: fmt.Errorf("scanner error in %s: %w", source, err)}
	}
}
