// Package transcribe implements the standalone transcription mode: no
// telephony involved, just local audio files through the speech-to-text
// pipeline into an output file.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"callscribe/internal/config"
	"callscribe/internal/output"
	"callscribe/internal/transcription"
	"callscribe/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var (
	outputPath string
	format     string
	workers    int
	language   string
)

var Cmd = &cobra.Command{
	Use:   "transcribe <file-or-directory>",
	Short: "Transcribe local audio files without placing any calls",
	Long: `Transcribes a single audio file, or every audio file in a directory
(one level, non-recursive), and appends one row per file to the output file.
Only OPENAI_API_KEY is required; telephony settings are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().StringVarP(&outputPath, "output", "o", "transcripts.tsv", "output file path")
	Cmd.Flags().StringVarP(&format, "format", "f", "", "output format: tsv, csv, json, or xlsx")
	Cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent transcriptions (default from TRANSCRIBE_WORKERS)")
	Cmd.Flags().StringVarP(&language, "language", "l", "", "ISO-639-1 language hint passed to the transcriber")
}

func run(c *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateTranscribeOnly(); err != nil {
		return err
	}
	if workers > 0 {
		cfg.Transcription.Workers = workers
	}

	verbose, _ := c.Flags().GetBool("verbose")
	log := logger.NewCLI(os.Stderr, verbose)

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmtParsed, err := output.ParseFormat(format)
	if err != nil {
		return err
	}
	sink, err := output.NewSink(outputPath, fmtParsed, log)
	if err != nil {
		return err
	}

	whisper := transcription.NewWhisperTranscriber(cfg.OpenAI.APIKey)
	svc := transcription.NewService(whisper, transcription.ServiceConfig{
		MaxRetries:      cfg.Transcription.MaxRetries,
		RetryDelay:      cfg.Transcription.RetryDelay,
		Workers:         cfg.Transcription.Workers,
		DownloadTimeout: cfg.Transcription.DownloadTimeout,
	}, log)

	source := args[0]
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", source, err)
	}

	var results []transcription.Result
	if info.IsDir() {
		results, err = transcribeDir(ctx, svc, sink, source)
		if err != nil {
			return err
		}
	} else {
		res := svc.TranscribeFile(ctx, source, language)
		results = append(results, res)
		if res.IsSuccess() {
			if err := sink.Write(recordFor(res)); err != nil {
				return err
			}
		}
	}

	if err := sink.Finalize(); err != nil {
		return err
	}

	succeeded := 0
	for _, res := range results {
		if res.IsSuccess() {
			succeeded++
			continue
		}
		fmt.Fprintf(os.Stderr, "failed: %s: %s\n", res.Filename, res.ErrorMessage)
	}

	stats := sink.Stats()
	fmt.Fprintf(os.Stderr, "Transcribed %d of %d files; wrote %d rows to %s\n",
		succeeded, len(results), stats.Rows, stats.Path)
	if succeeded == 0 && len(results) > 0 {
		return fmt.Errorf("no files transcribed")
	}
	return nil
}

func transcribeDir(ctx context.Context, svc *transcription.Service, sink *output.Sink, dir string) ([]transcription.Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, e := range entries {
		if !e.IsDir() && transcription.IsAudioFile(e.Name()) {
			total++
		}
	}
	if total == 0 {
		fmt.Fprintf(os.Stderr, "No audio files found in %s\n", dir)
		return nil, nil
	}

	progress := mpb.New(mpb.WithOutput(os.Stderr), mpb.WithWidth(64))
	bar := progress.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("transcribing "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	var writeErr error
	results, err := svc.TranscribeDirectory(ctx, dir, language, transcription.BatchCallbacks{
		OnResult: func(res transcription.Result) {
			bar.Increment()
			if !res.IsSuccess() {
				return
			}
			if err := sink.Write(recordFor(res)); err != nil && writeErr == nil {
				writeErr = err
			}
		},
	})
	progress.Wait()
	if err != nil {
		return nil, err
	}
	return results, writeErr
}

func recordFor(res transcription.Result) output.TranscriptRecord {
	return output.TranscriptRecord{
		Filename:        res.Filename,
		Transcription:   res.Text,
		DurationSeconds: res.DurationSeconds,
		Language:        res.Language,
	}
}
