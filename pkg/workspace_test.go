package pkg

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWorkspace(t *testing.T) (*Workspace, string) {
	dir := t.TempDir()

	ws, err := NewWorkspace(dir, zap.NewNop().Sugar())
	require.NoError(t, err)

	return ws, dir
}

func TestWorkspaceCreate(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	require.NoError(t, ws.Create("b"))
	require.NoError(t, ws.Create("a"))
	require.ErrorIs(t, ws.Create("a"), ErrArtifactExists)

	require.Equal(t, []string{"a", "b"}, ws.Names())
}

func TestWorkspaceDrop(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	require.NoError(t, ws.Create("a"))
	require.True(t, ws.Drop("a"))
	require.False(t, ws.Drop("a"))
	require.Empty(t, ws.Names())

	err := ws.Do("a", func(w *BinaryWriter) error { return nil })
	require.ErrorIs(t, err, ErrUnknownArtifact)
}

func TestWorkspaceDoError(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	require.NoError(t, ws.Create("a"))

	err := ws.Do("a", func(w *BinaryWriter) error {
		_, err := w.PopPosition()
		return err
	})
	require.ErrorIs(t, err, ErrPositionStackEmpty)
}

func TestWorkspaceEmbed(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	require.NoError(t, ws.Create("dst"))
	require.NoError(t, ws.Create("src"))

	require.NoError(t, ws.Do("src", func(w *BinaryWriter) error {
		w.WriteUint16(0xabcd)
		return nil
	}))
	require.NoError(t, ws.Do("dst", func(w *BinaryWriter) error {
		w.WriteString("xy")
		return nil
	}))

	pos, err := ws.Embed("dst", "src")
	require.NoError(t, err)
	require.Equal(t, uint32(4), pos)

	pos, err = ws.Embed("dst", "dst")
	require.NoError(t, err)
	require.Equal(t, uint32(8), pos)

	require.NoError(t, ws.Do("dst", func(w *BinaryWriter) error {
		require.Equal(t, []byte{'x', 'y', 0xab, 0xcd, 'x', 'y', 0xab, 0xcd}, w.Bytes())
		return nil
	}))

	_, err = ws.Embed("dst", "nope")
	require.ErrorIs(t, err, ErrUnknownArtifact)
}

func TestWorkspaceFlush(t *testing.T) {
	ws, dir := newTestWorkspace(t)
	require.NoError(t, ws.Create("level"))

	require.NoError(t, ws.Do("level", func(w *BinaryWriter) error {
		w.WriteUint32(0x01020304)
		return nil
	}))

	n, err := ws.Flush("level", "levels/level1.bin")
	require.NoError(t, err)
	require.Equal(t, uint32(4), n)

	b, err := os.ReadFile(filepath.Join(dir, "levels", "level1.bin"))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, b)
}

func TestWorkspaceFlushInvalidPath(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	require.NoError(t, ws.Create("a"))

	for _, p := range []string{"", ".", "../escape.bin", "a/../../escape.bin", "/abs.bin"} {
		_, err := ws.Flush("a", p)
		require.ErrorIs(t, err, ErrInvalidPath, p)
	}
}

func TestWorkspaceFlushUnknown(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	_, err := ws.Flush("missing", "out.bin")
	require.True(t, errors.Is(err, ErrUnknownArtifact))
}

func TestWorkspaceConcurrentArtifacts(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		name := string(rune('a' + i))
		require.NoError(t, ws.Create(name))

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				err := ws.Do(name, func(w *BinaryWriter) error {
					w.WriteUint32(uint32(j))
					return nil
				})
				require.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for _, name := range ws.Names() {
		require.NoError(t, ws.Do(name, func(w *BinaryWriter) error {
			require.Equal(t, uint32(4000), w.Size())
			return nil
		}))
	}
}

func TestWorkspaceEmbedSizeLimit(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), zap.NewNop().Sugar(), WithMaxSize(4))
	require.NoError(t, err)
	require.Equal(t, uint32(4), ws.MaxSize())

	require.NoError(t, ws.Create("dst"))
	require.NoError(t, ws.Create("src"))
	require.NoError(t, ws.Do("src", func(w *BinaryWriter) error {
		w.WriteUint32(1)
		return nil
	}))

	pos, err := ws.Embed("dst", "src")
	require.NoError(t, err)
	require.Equal(t, uint32(4), pos)

	_, err = ws.Embed("dst", "src")
	require.ErrorIs(t, err, ErrSizeLimit)

	require.NoError(t, ws.Do("dst", func(w *BinaryWriter) error {
		require.Equal(t, uint32(4), w.Size())
		return nil
	}))
}

func TestWorkspaceDefaultMaxSize(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	require.Equal(t, uint32(DefaultMaxArtifactSize), ws.MaxSize())
}
