package output

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thirdjal/A10-cli-deploy/internal/domain"
)

func newSink(t *testing.T) (*Sink, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "output"), 0o755))
	s, err := NewSink(root, "output", nil)
	require.NoError(t, err)
	return s, filepath.Join(root, "output")
}

func TestNewSink_ResolvesAgainstRoot(t *testing.T) {
	s, dir := newSink(t)
	require.True(t, filepath.IsAbs(s.Dir()))
	require.Equal(t, dir, s.Dir())
}

func TestClear_RemovesStaleResults(t *testing.T) {
	s, dir := newSink(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("stale"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10.0.0.9.txt"), []byte("stale"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested", "deeper"), 0o755))

	require.NoError(t, s.Clear())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestClear_MissingDirIsSetupError(t *testing.T) {
	s, err := NewSink(t.TempDir(), "does-not-exist", nil)
	require.NoError(t, err)
	require.ErrorIs(t, s.Clear(), domain.ErrSetup)
}

func TestNewSink_EmptyDir(t *testing.T) {
	_, err := NewSink(t.TempDir(), " ", nil)
	require.ErrorIs(t, err, domain.ErrSetup)
}

func TestWrite_ThenReadReturnsPayload(t *testing.T) {
	s, dir := newSink(t)
	p, err := s.Write("host1", []byte(`{"response":"ok"}`))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "host1.txt"), p)

	b, err := os.ReadFile(filepath.Join(dir, "host1.txt"))
	require.NoError(t, err)
	require.Equal(t, `{"response":"ok"}`, string(b))
}

func TestWrite_Appends(t *testing.T) {
	s, _ := newSink(t)
	_, err := s.Write("10.0.0.1", []byte("first\n"))
	require.NoError(t, err)
	p, err := s.Write("10.0.0.1", []byte("second\n"))
	require.NoError(t, err)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Equal(t, "first\nsecond\n", string(b))
}

func TestWrite_StaysInsideOutputDir(t *testing.T) {
	s, dir := newSink(t)
	for _, name := range []string{"../../etc/passwd", "/abs/path", `..\win`, ".."} {
		p, err := s.Write(name, []byte("x"))
		require.NoError(t, err, name)
		require.Equal(t, dir, filepath.Dir(p), name)
	}
}

func TestWrite_ErrorNamesResultFile(t *testing.T) {
	s, err := NewSink(t.TempDir(), "gone", nil)
	require.NoError(t, err)
	_, err = s.Write("10.0.0.1", []byte("x"))
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Contains(t, err.Error(), s.Path("10.0.0.1"))
}
