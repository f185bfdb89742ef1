package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
)

// Format is the physical encoding of the output resource.
type Format string

const (
	FormatTSV  Format = "tsv"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name from config or a CLI flag.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTSV, FormatCSV, FormatJSON, FormatXLSX:
		return Format(s), nil
	case "":
		return FormatTSV, nil
	default:
		return "", fmt.Errorf("output: unsupported format %q", s)
	}
}

const xlsxSheet = "Results"

// Sink appends records to one output resource under a single writer lock.
// The resource (and its header, where the encoding has one) materializes
// lazily on the first write. Records land in write-call order; there is no
// batching or reordering.
//
// The JSON encoding streams an array incrementally: a first-element flag
// decides the separator, and Finalize writes the closing bracket, so the
// file never needs a trailing-byte rewrite.
type Sink struct {
	path   string
	format Format

	mu          sync.Mutex
	initialized bool
	finalized   bool
	rows        int

	// json state
	wroteElement bool

	// xlsx state: rows accumulate in memory, Finalize saves the workbook.
	book    *excelize.File
	nextRow int

	log *slog.Logger
}

func NewSink(path string, format Format, log *slog.Logger) (*Sink, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sink{path: path, format: format, log: log}, nil
}

func (s *Sink) Path() string   { return s.path }
func (s *Sink) Format() Format { return s.format }

// Write appends one record. The header of the first record written decides
// the resource's row shape.
func (s *Sink) Write(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return fmt.Errorf("output: write after finalize on %s", s.path)
	}
	if err := s.ensureInitialized(rec.Header()); err != nil {
		return err
	}

	var err error
	switch s.format {
	case FormatTSV, FormatCSV:
		err = s.appendDelimited(rec.Row())
	case FormatJSON:
		err = s.appendJSON(rec.Row())
	case FormatXLSX:
		err = s.appendXLSX(rec.Row())
	}
	if err != nil {
		return err
	}
	s.rows++
	return nil
}

// Finalize closes the resource: for JSON it terminates the array, for xlsx
// it saves the workbook, for delimited encodings it is a no-op. Call exactly
// once after all writes; extra calls are no-ops.
func (s *Sink) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized || !s.initialized {
		s.finalized = true
		return nil
	}
	s.finalized = true

	switch s.format {
	case FormatJSON:
		if err := s.appendBytes([]byte("\n]\n")); err != nil {
			return err
		}
	case FormatXLSX:
		if err := s.book.SaveAs(s.path); err != nil {
			return fmt.Errorf("output: save workbook: %w", err)
		}
	}
	s.log.Info("output finalized", "path", s.path, "rows", s.rows)
	return nil
}

// Stats describe the resource for CLI summaries.
type Stats struct {
	Rows      int
	SizeBytes int64
	Path      string
}

func (s *Sink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Rows: s.rows, Path: s.path}
	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}
	return st
}

func (s *Sink) ensureInitialized(header []string) error {
	if s.initialized {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("output: create directory: %w", err)
		}
	}

	switch s.format {
	case FormatTSV, FormatCSV:
		f, err := os.Create(s.path)
		if err != nil {
			return fmt.Errorf("output: create %s: %w", s.path, err)
		}
		defer f.Close()
		w := csv.NewWriter(f)
		w.Comma = s.delimiter()
		if err := w.Write(header); err != nil {
			return err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	case FormatJSON:
		if err := os.WriteFile(s.path, []byte("["), 0o644); err != nil {
			return fmt.Errorf("output: create %s: %w", s.path, err)
		}
	case FormatXLSX:
		s.book = excelize.NewFile()
		s.book.SetSheetName(s.book.GetSheetName(0), xlsxSheet)
		cells := make([]any, len(header))
		for i, h := range header {
			cells[i] = h
		}
		if err := s.book.SetSheetRow(xlsxSheet, "A1", &cells); err != nil {
			return err
		}
		s.nextRow = 2
	}
	s.initialized = true
	return nil
}

func (s *Sink) delimiter() rune {
	if s.format == FormatCSV {
		return ','
	}
	return '\t'
}

func (s *Sink) appendDelimited(row []string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = s.delimiter()
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (s *Sink) appendJSON(row []string) error {
	element, err := json.Marshal(map[string]any{
		"row":       row,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	sep := []byte("\n")
	if s.wroteElement {
		sep = []byte(",\n")
	}
	if err := s.appendBytes(append(sep, element...)); err != nil {
		return err
	}
	s.wroteElement = true
	return nil
}

func (s *Sink) appendXLSX(row []string) error {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	cell, err := excelize.CoordinatesToCellName(1, s.nextRow)
	if err != nil {
		return err
	}
	if err := s.book.SetSheetRow(xlsxSheet, cell, &cells); err != nil {
		return err
	}
	s.nextRow++
	return nil
}

func (s *Sink) appendBytes(b []byte) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(b)
	return err
}
