package pkg

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// DefaultMaxArtifactSize bounds artifacts of a Workspace created without
// WithMaxSize.
const DefaultMaxArtifactSize = 256 << 20

type artifact struct {
	mu sync.Mutex
	w  *BinaryWriter
}

// Workspace holds named artifacts that are flushed below a common output
// directory. Each artifact's writer is used by one caller at a time.
type Workspace struct {
	outDir  string
	maxSize uint32

	mu        sync.RWMutex
	artifacts map[string]*artifact

	logger *zap.SugaredLogger
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithMaxSize limits how large any artifact in the workspace may grow.
func WithMaxSize(n uint32) WorkspaceOption {
	return func(ws *Workspace) {
		ws.maxSize = n
	}
}

func NewWorkspace(outDir string, logger *zap.SugaredLogger, opts ...WorkspaceOption) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errCreatingWorkspace(err)
	}

	abs, err := filepath.Abs(outDir)
	if err != nil {
		return nil, errCreatingWorkspace(err)
	}

	ws := &Workspace{
		outDir:    abs,
		maxSize:   DefaultMaxArtifactSize,
		artifacts: map[string]*artifact{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(ws)
	}

	return ws, nil
}

// MaxSize returns the artifact size limit.
func (c *Workspace) MaxSize() uint32 {
	return c.maxSize
}

// checkEnd reports ErrSizeLimit if n bytes written at start would end past
// the artifact size limit.
func (c *Workspace) checkEnd(start uint32, n uint64) error {
	if end := uint64(start) + n; end > uint64(c.maxSize) {
		return errSizeLimit(end, c.maxSize)
	}

	return nil
}

func (c *Workspace) Create(name string, opts ...Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.artifacts[name]; ok {
		return errArtifact(ErrArtifactExists, name)
	}

	c.artifacts[name] = &artifact{w: NewBinaryWriter(opts...)}
	c.logger.Debugf("created artifact %s", name)

	return nil
}

// Drop removes an artifact and reports whether it existed.
func (c *Workspace) Drop(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.artifacts[name]
	delete(c.artifacts, name)
	if ok {
		c.logger.Debugf("dropped artifact %s", name)
	}

	return ok
}

func (c *Workspace) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.artifacts))
	for name := range c.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Do runs fn with exclusive access to the named artifact's writer.
func (c *Workspace) Do(name string, fn func(w *BinaryWriter) error) error {
	a, err := c.get(name)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := fn(a.w); err != nil {
		return errArtifact(err, name)
	}

	return nil
}

// Embed copies the content of src into dst at dst's cursor and returns
// dst's new cursor.
func (c *Workspace) Embed(dst, src string) (uint32, error) {
	s, err := c.get(src)
	if err != nil {
		return 0, err
	}

	// Snapshot src first so the two artifact locks are never held together.
	s.mu.Lock()
	sub := NewBinaryWriter(WithCapacity(int(s.w.Size())))
	sub.WriteSubBuffer(s.w)
	s.mu.Unlock()

	var pos uint32
	err = c.Do(dst, func(w *BinaryWriter) error {
		if err := c.checkEnd(w.Position(), uint64(sub.Size())); err != nil {
			return err
		}
		w.WriteSubBuffer(sub)
		pos = w.Position()
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.logger.Debugf("embedded %s (%d bytes) into %s", src, sub.Size(), dst)

	return pos, nil
}

// Flush writes the named artifact to relPath below the output directory and
// returns the number of bytes written.
func (c *Workspace) Flush(name string, relPath string) (uint32, error) {
	path, err := c.resolve(relPath)
	if err != nil {
		return 0, errArtifact(err, name)
	}

	logger := c.logger.With(zap.String("artifact", name), zap.String("path", path))

	var size uint32
	err = c.Do(name, func(w *BinaryWriter) error {
		if depth := w.PositionDepth(); depth != 0 {
			logger.Warnf("flushing with %d unpopped positions", depth)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errFlushing(err, path)
		}

		size = w.Size()
		return w.FlushToFile(path)
	})
	if err != nil {
		logger.Errorf("flush failed: %v", err)
		return 0, err
	}

	logger.Infof("flushed %d bytes", size)

	return size, nil
}

func (c *Workspace) get(name string) (*artifact, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.artifacts[name]
	if !ok {
		return nil, errArtifact(ErrUnknownArtifact, name)
	}

	return a, nil
}

func (c *Workspace) resolve(relPath string) (string, error) {
	if relPath == "" || filepath.IsAbs(relPath) {
		return "", ErrInvalidPath
	}

	path := filepath.Join(c.outDir, relPath)
	if path == c.outDir || !strings.HasPrefix(path, c.outDir+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}

	return path, nil
}

func errCreatingWorkspace(err error) error {
	return fmt.Errorf("err creating workspace: %w", err)
}
