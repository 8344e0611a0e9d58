package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"teamboard/internal/model"
)

// TaskSource is the read side of the team task API.
type TaskSource interface {
	List(ctx context.Context) ([]model.TeamTask, error)
	Get(ctx context.Context, id int64) (model.TeamTask, error)
}

type WriteOptions struct {
	Title     string
	Overwrite bool
	// Concurrency bounds the task detail fetches. Zero means 4.
	Concurrency int
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteTask fetches one task with its sub-tasks and writes tasks/<id>.md.
func WriteTask(ctx context.Context, src TaskSource, taskID int64, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir, err := cleanDir(toDir)
	if err != nil {
		return WriteResult{}, err
	}
	t, err := src.Get(ctx, taskID)
	if err != nil {
		return WriteResult{}, err
	}
	outDir := filepath.Join(toDir, "tasks")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return WriteResult{}, err
	}
	p := taskPath(outDir, t.ID)
	if err := writeFile(p, []byte(RenderTaskMarkdown(t)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{p}}, nil
}

// WriteBoard writes index.md plus one page per task. The list response
// carries no sub-tasks, so every task is fetched again.
func WriteBoard(ctx context.Context, src TaskSource, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir, err := cleanDir(toDir)
	if err != nil {
		return WriteResult{}, err
	}
	tasks, err := src.List(ctx)
	if err != nil {
		return WriteResult{}, err
	}

	full := make([]model.TeamTask, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	limit := opt.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for i, t := range tasks {
		g.Go(func() error {
			got, err := src.Get(gctx, t.ID)
			if err != nil {
				return err
			}
			full[i] = got
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return WriteResult{}, err
	}

	itemsDir := filepath.Join(toDir, "tasks")
	if err := os.MkdirAll(itemsDir, 0o755); err != nil {
		return WriteResult{}, err
	}
	indexPath := filepath.Join(toDir, "index.md")
	if err := writeFile(indexPath, []byte(RenderBoardIndexMarkdown(opt.Title, full)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}

	// Stop on the first error.
	written := []string{indexPath}
	for _, t := range full {
		p := taskPath(itemsDir, t.ID)
		if err := writeFile(p, []byte(RenderTaskMarkdown(t)), opt.Overwrite); err != nil {
			return WriteResult{}, err
		}
		written = append(written, p)
	}
	return WriteResult{Written: written}, nil
}

func cleanDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", errors.New("missing --to")
	}
	return filepath.Clean(dir), nil
}

func taskPath(dir string, id int64) string {
	return filepath.Join(dir, strconv.FormatInt(id, 10)+".md")
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
