package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/lo"
)

// ErrNotADirectory is returned by TranscribeDirectory when the path is
// missing or not a directory. This check is synchronous and precedes any
// pool submission.
var ErrNotADirectory = errors.New("transcription: not a directory")

// BatchCallbacks are the optional hooks invoked as items finish, in
// completion order.
type BatchCallbacks struct {
	OnResult   func(Result)
	OnProgress func(done, total int)
}

// TranscribeDirectory transcribes every eligible audio file in one directory
// level (non-recursive) on a bounded worker pool. The returned slice is in
// completion order. Per-file failures come back as failure Results; only the
// directory check itself can error.
func (s *Service) TranscribeDirectory(ctx context.Context, dir, language string, cb BatchCallbacks) ([]Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	files := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if e.IsDir() || !IsAudioFile(e.Name()) {
			return "", false
		}
		return filepath.Join(dir, e.Name()), true
	})

	total := len(files)
	if total == 0 {
		s.log.Warn("no audio files found", "dir", dir)
		return nil, nil
	}
	s.log.Info("batch transcription starting", "dir", dir, "files", total)

	out := make(chan Result, total)
	sem := make(chan struct{}, s.workers)

	var mu sync.Mutex
	done := 0
	var wg sync.WaitGroup
	for _, path := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := s.TranscribeFile(ctx, path, language)

			mu.Lock()
			done++
			if cb.OnResult != nil {
				cb.OnResult(res)
			}
			if cb.OnProgress != nil {
				cb.OnProgress(done, total)
			}
			mu.Unlock()

			out <- res
		}(path)
	}
	wg.Wait()
	close(out)

	results := make([]Result, 0, total)
	for res := range out {
		results = append(results, res)
	}

	succeeded := lo.CountBy(results, Result.IsSuccess)
	s.log.Info("batch transcription complete", "succeeded", succeeded, "total", total)
	return results, nil
}
