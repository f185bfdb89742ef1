package transcription

import "time"

// Status of one transcription job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Result is the outcome of transcribing one audio source.
//
// Construct results only through Success and Failure; that keeps the
// status/error combination consistent (completed iff ErrorMessage is empty;
// an empty transcript is still a valid success).
type Result struct {
	Filename        string    `json:"filename"`
	Text            string    `json:"text"`
	Status          Status    `json:"status"`
	DurationSeconds float64   `json:"duration_seconds"`
	Language        string    `json:"language,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

func Success(filename, text string, duration float64, language string) Result {
	return Result{
		Filename:        filename,
		Text:            text,
		Status:          StatusCompleted,
		DurationSeconds: duration,
		Language:        language,
		CreatedAt:       time.Now(),
	}
}

func Failure(filename, errMsg string) Result {
	return Result{
		Filename:     filename,
		Status:       StatusFailed,
		CreatedAt:    time.Now(),
		ErrorMessage: errMsg,
	}
}

func (r Result) IsSuccess() bool {
	return r.Status == StatusCompleted
}
