package output

import (
	"fmt"
	"time"
)

// Record is one row bound for the output resource. The two concrete shapes
// below are never intermixed in one resource during normal operation; the
// sink writes whichever header it sees first.
type Record interface {
	Header() []string
	Row() []string
}

// CallRecord is the merged, durable output of one transcribed call.
// Produced exactly once per successfully transcribed call, never mutated.
type CallRecord struct {
	FromNumber      string
	ToNumber        string
	Transcription   string
	DurationSeconds float64
	CallControlID   string
	CreatedAt       time.Time
}

func (r CallRecord) Header() []string {
	return []string{"From Number", "To Number", "Transcription", "Duration (seconds)"}
}

func (r CallRecord) Row() []string {
	return []string{
		r.FromNumber,
		r.ToNumber,
		r.Transcription,
		fmt.Sprintf("%.2f", r.DurationSeconds),
	}
}

// TranscriptRecord is the standalone row shape for directory transcription.
type TranscriptRecord struct {
	Filename        string
	Transcription   string
	DurationSeconds float64
	Language        string
}

func (r TranscriptRecord) Header() []string {
	return []string{"Filename", "Transcription", "Duration (seconds)", "Language"}
}

func (r TranscriptRecord) Row() []string {
	duration := ""
	if r.DurationSeconds > 0 {
		duration = fmt.Sprintf("%.2f", r.DurationSeconds)
	}
	return []string{r.Filename, r.Transcription, duration, r.Language}
}
