package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"tsv", "csv", "json", "xlsx"} {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, Format(name), f)
	}

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTSV, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func readRows(t *testing.T, path string, comma rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = comma
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSinkTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.tsv")
	sink, err := NewSink(path, FormatTSV, nil)
	require.NoError(t, err)

	rec := CallRecord{
		FromNumber:      "+15550000000",
		ToNumber:        "+15550001111",
		Transcription:   "hello there",
		DurationSeconds: 12.5,
	}
	require.NoError(t, sink.Write(rec))
	require.NoError(t, sink.Finalize())

	rows := readRows(t, path, '\t')
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"From Number", "To Number", "Transcription", "Duration (seconds)"}, rows[0])
	assert.Equal(t, []string{"+15550000000", "+15550001111", "hello there", "12.50"}, rows[1])
}

func TestSinkCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	sink, err := NewSink(path, FormatCSV, nil)
	require.NoError(t, err)

	require.NoError(t, sink.Write(TranscriptRecord{Filename: "a.mp3", Transcription: "text, with comma"}))
	require.NoError(t, sink.Finalize())

	rows := readRows(t, path, ',')
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Filename", "Transcription", "Duration (seconds)", "Language"}, rows[0])
	assert.Equal(t, "text, with comma", rows[1][1])
	assert.Equal(t, "", rows[1][2], "zero duration renders empty for transcript rows")
}

func TestSinkJSONStreamsValidArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	sink, err := NewSink(path, FormatJSON, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		rec := CallRecord{ToNumber: fmt.Sprintf("+1555000%04d", i), Transcription: "t"}
		require.NoError(t, sink.Write(rec))
	}
	require.NoError(t, sink.Finalize())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var elements []struct {
		Row       []string `json:"row"`
		Timestamp string   `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(raw, &elements), "finalized file must be one valid JSON array")
	require.Len(t, elements, 3)
	assert.Equal(t, "+15550000000", elements[0].Row[1])
	assert.NotEmpty(t, elements[0].Timestamp)
}

func TestSinkJSONEmptyFinalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	sink, err := NewSink(path, FormatJSON, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Finalize())

	// Nothing written, nothing materialized.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSinkXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	sink, err := NewSink(path, FormatXLSX, nil)
	require.NoError(t, err)

	require.NoError(t, sink.Write(CallRecord{FromNumber: "+15550000000", ToNumber: "+15550001111", Transcription: "hi", DurationSeconds: 3}))
	require.NoError(t, sink.Finalize())

	book, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer book.Close()

	header, err := book.GetCellValue("Results", "A1")
	require.NoError(t, err)
	assert.Equal(t, "From Number", header)
	text, err := book.GetCellValue("Results", "C2")
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestSinkConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.tsv")
	sink, err := NewSink(path, FormatTSV, nil)
	require.NoError(t, err)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := CallRecord{ToNumber: fmt.Sprintf("+1555000%04d", i), Transcription: "t", DurationSeconds: 1}
			assert.NoError(t, sink.Write(rec))
		}(i)
	}
	wg.Wait()
	require.NoError(t, sink.Finalize())

	rows := readRows(t, path, '\t')
	assert.Len(t, rows, n+1, "every write lands as exactly one intact row")
	assert.Equal(t, n, sink.Stats().Rows)
}

func TestSinkWriteAfterFinalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.tsv")
	sink, err := NewSink(path, FormatTSV, nil)
	require.NoError(t, err)

	require.NoError(t, sink.Write(CallRecord{ToNumber: "+15550001111"}))
	require.NoError(t, sink.Finalize())
	require.NoError(t, sink.Finalize(), "finalize is idempotent")

	err = sink.Write(CallRecord{ToNumber: "+15550002222"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write after finalize")
}

func TestSinkStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.tsv")
	sink, err := NewSink(path, FormatTSV, nil)
	require.NoError(t, err)

	require.NoError(t, sink.Write(CallRecord{ToNumber: "+15550001111", Transcription: strings.Repeat("x", 100)}))
	require.NoError(t, sink.Finalize())

	st := sink.Stats()
	assert.Equal(t, 1, st.Rows)
	assert.Equal(t, path, st.Path)
	assert.Greater(t, st.SizeBytes, int64(100))
}
