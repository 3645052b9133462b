package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/pkg/config"
)

func TestLocalStoragePutGetDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Put(ctx, "requests/r1/note.txt", strings.NewReader("hello"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "requests/r1/note.txt", key)

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "hello", string(body))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, key))
}

func TestLocalStorageKeysStayInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	path := store.Path("../../etc/passwd")
	assert.True(t, strings.HasPrefix(path, dir))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("exports/old.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("exports/new.csv", []byte("b"))
	require.NoError(t, err)
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "exports", "old.csv"), old, old))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/old.csv"}, deleted)
	assert.FileExists(t, filepath.Join(dir, "exports", "new.csv"))
}

func TestLocalStoragePutCancelledLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, "requests/r1/big.bin", bytes.NewReader(make([]byte, 1024)), "")
	require.Error(t, err)
	entries, err := os.ReadDir(filepath.Join(dir, "requests", "r1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStorageCleanupRemovesStalePartials(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)
	partial := filepath.Join(dir, partialPrefix+"123")
	require.NoError(t, os.WriteFile(partial, []byte("x"), 0o644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(partial, old, old))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Empty(t, deleted)
	assert.NoFileExists(t, partial)

	_, err = store.Put(context.Background(), partialPrefix+"x", strings.NewReader("y"), "")
	assert.Error(t, err)
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoragePrefixesKeys(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	store := newS3Storage(client, "bucket", "/attachments/")
	ctx := context.Background()

	key, err := store.Put(ctx, "requests/r1/file.pdf", strings.NewReader("pdf"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "requests/r1/file.pdf", key)
	assert.Contains(t, client.objects, "attachments/requests/r1/file.pdf")
	assert.Equal(t, "application/pdf", client.types["attachments/requests/r1/file.pdf"])

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "pdf", string(body))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)

	store, err := New(context.Background(), config.StorageConfig{Driver: "local", LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)
}
