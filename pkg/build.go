package pkg

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Artifact describes one output file. Build fills a fresh writer that is
// then flushed to Path.
type Artifact struct {
	Path  string
	Build func(w *BinaryWriter) error
}

// BuildAll builds and flushes artifacts concurrently, at most limit at a
// time (no limit if limit <= 0). Relative paths are resolved against outDir.
// The first failure stops builds that have not started yet and is returned.
func BuildAll(ctx context.Context, logger *zap.SugaredLogger, outDir string, artifacts []Artifact, limit int) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, a := range artifacts {
		a := a
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			path := a.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(outDir, path)
			}

			w := NewBinaryWriter()
			if err := a.Build(w); err != nil {
				return errBuilding(err, path)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return errBuilding(err, path)
			}

			if err := w.FlushToFile(path); err != nil {
				return errBuilding(err, path)
			}

			logger.Debugf("built %s (%d bytes)", path, w.Size())

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Errorf("build failed: %v", err)
		return err
	}

	logger.Infof("built %d artifacts", len(artifacts))

	return nil
}
