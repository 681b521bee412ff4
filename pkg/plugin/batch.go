package plugin

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome for one file of a batch.
type FileResult struct {
	Path string
	// Source is the file content as read.
	Source []byte
	// Output is nil when the file was skipped or failed to parse.
	Output *Output
	// Err is set when the file could not be read.
	Err error
}

// TransformFiles reads and transforms paths with at most workers goroutines
// (GOMAXPROCS when workers <= 0). Results keep the order of paths. A file
// that cannot be read or parsed does not stop the batch; only context
// cancellation does.
func (p *Plugin) TransformFiles(ctx context.Context, paths []string, workers int) ([]FileResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]FileResult, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			err := gCtx.Err()
			if err != nil {
				return fmt.Errorf("transform files: %w", err)
			}

			results[i] = p.transformFile(gCtx, path)

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return results, nil
}

func (p *Plugin) transformFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}

	if !p.Eligible(path) {
		return res
	}

	src, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("read %s: %w", path, err)

		return res
	}

	res.Source = src
	res.Output = p.Transform(ctx, string(src), path)

	return res
}
