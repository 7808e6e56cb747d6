package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "data", "todo.json"))
	require.NoError(t, err)
	return fs
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	fs := newTestFileStore(t)

	entries, err := fs.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	n, err := fs.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFileStore_CorruptFileIsEmpty(t *testing.T) {
	t.Parallel()
	fs := newTestFileStore(t)
	require.NoError(t, os.WriteFile(fs.Path(), []byte("{not json"), 0o600))

	entries, err := fs.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStore_AppendUsesSequentialKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newTestFileStore(t)

	k1, err := fs.Append(ctx, "buy milk")
	require.NoError(t, err)
	k2, err := fs.Append(ctx, "call mom")
	require.NoError(t, err)

	assert.Equal(t, "1", k1)
	assert.Equal(t, "2", k2)

	entries, err := fs.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"1", "buy milk"}, {"2", "call mom"}}, entries)
}

func TestFileStore_PutKeepsInsertionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newTestFileStore(t)

	require.NoError(t, fs.Put(ctx, "5pm", "gym"))
	require.NoError(t, fs.Put(ctx, "9am", "standup"))
	require.NoError(t, fs.Put(ctx, "5pm", "yoga"))

	entries, err := fs.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"5pm", "yoga"}, {"9am", "standup"}}, entries)
}

func TestFileStore_FileFormat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newTestFileStore(t)

	require.NoError(t, fs.Put(ctx, "b", "<two>"))
	require.NoError(t, fs.Put(ctx, "a", "one"))

	data, err := os.ReadFile(fs.Path())
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": \"<two>\",\n  \"a\": \"one\"\n}", string(data))
}

func TestFileStore_ReadsHandWrittenFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newTestFileStore(t)
	require.NoError(t, os.WriteFile(fs.Path(), []byte(`{"z": "last", "a": 3}`), 0o600))

	entries, err := fs.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"z", "last"}, {"a", "3"}}, entries)
}

func TestFileStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newTestFileStore(t)

	_, err := fs.Append(ctx, "one")
	require.NoError(t, err)

	ok, err := fs.Delete(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fs.Delete(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_JSONBackend(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	set, err := Open(Config{Backend: "json", Dir: dir})
	require.NoError(t, err)
	defer set.Close()

	_, err = set.Get(Notes).Append(context.Background(), "hello")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "notes.json"))
}

func TestOpen_UnknownBackend(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Backend: "mongo"})
	assert.Error(t, err)
}
