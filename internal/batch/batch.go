package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/veridose/boxscan/internal/pipeline"
	"github.com/veridose/boxscan/internal/utils"
)

// ProcessBatch scans every image under the given paths with an already
// built pipeline. Files are processed over a small worker pool; each
// file's outcome is independent, so one unreadable photo never aborts
// the run. Results come back in discovery order.
func ProcessBatch(ctx context.Context, pl *pipeline.Pipeline, paths []string, cfg Config) (*Result, error) {
	files, err := discoverImageFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultConfig().Workers
	}
	if workers > len(files) {
		workers = len(files)
	}

	start := time.Now()
	session := pipeline.NewSession()

	type job struct {
		index int
		path  string
	}
	jobs := make(chan job, len(files))
	results := make([]FileResult, len(files))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = scanFile(ctx, pl, session, j.path)
			}
		}()
	}
	for i, path := range files {
		jobs <- job{index: i, path: path}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{Files: results, Duration: time.Since(start)}, nil
}

func scanFile(ctx context.Context, pl *pipeline.Pipeline, session *pipeline.Session, path string) FileResult {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return FileResult{Path: path, Error: err.Error()}
	}
	res, err := pl.Process(ctx, img, session)
	if err != nil {
		return FileResult{Path: path, Error: err.Error()}
	}
	return FileResult{Path: path, Result: res}
}
