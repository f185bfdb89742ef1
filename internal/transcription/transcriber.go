package transcription

import (
	"context"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber converts one audio stream into text. The name is passed through
// to the backend, which uses the extension to pick a decoder.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, name, language string) (string, error)
}

// WhisperTranscriber implements Transcriber on the OpenAI audio API.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

func NewWhisperTranscriber(apiKey string) *WhisperTranscriber {
	return &WhisperTranscriber{
		client: openai.NewClient(apiKey),
		model:  openai.Whisper1,
	}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio io.Reader, name, language string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		Reader:   audio,
		FilePath: name,
		Language: language,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
