package driver

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"prism/internal/pipeline"
	"prism/internal/trace"
)

// documentExts lists the extensions ListDocuments picks up.
var documentExts = []string{".json", ".msgpack", ".mp"}

// ListDocuments returns a sorted list of all interchange documents under dir.
func ListDocuments(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range documentExts {
			if ext == want {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// sorted for deterministic order
	sort.Strings(files)
	return files, nil
}

// LowerAll lowers every path concurrently, one compiler per unit. Results
// are in path order. Per-unit failures land in Result.Err; the returned
// error is only set when ctx was cancelled.
func LowerAll(ctx context.Context, paths []string, opts Options) ([]*Result, error) {
	results := make([]*Result, len(paths))
	if len(paths) == 0 {
		return results, nil
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	span := trace.Begin(tracer, trace.ScopeDriver, "lower_all", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)
	opts.Tracer = tracer

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, p := range paths {
		pipeline.Emit(opts.Progress, pipeline.Event{File: p, Stage: pipeline.StageLoad, Status: pipeline.StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// indexes are unique per goroutine, no mutex needed
			results[i] = LowerFile(gctx, path, opts)
			return nil
		})
	}
	err := g.Wait()
	detail := "ok"
	if err != nil {
		detail = err.Error()
	}
	span.End(detail)
	return results, err
}
