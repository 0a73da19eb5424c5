package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"radiology-bot/internal/domain/entity"
)

func TestLocalStorage_PutGetList(t *testing.T) {
	ctx := context.Background()
	st, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "local", st.Backend())

	require.NoError(t, st.Put(ctx, "42/a1/input.jpg", []byte("xray"), "image/jpeg"))
	require.NoError(t, st.Put(ctx, "42/a1/result.json", []byte(`{"ok":true}`), "application/json"))
	require.NoError(t, st.Put(ctx, "7/b2/input.jpg", []byte("other"), "image/jpeg"))

	data, err := st.Get(ctx, "42/a1/input.jpg")
	require.NoError(t, err)
	require.Equal(t, []byte("xray"), data)

	objects, err := st.List(ctx, "42/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	require.Equal(t, "42/a1/input.jpg", objects[0].Key)
	require.Equal(t, int64(4), objects[0].Size)
	require.False(t, objects[0].LastModified.IsZero())

	size, err := st.Size(ctx, "42/")
	require.NoError(t, err)
	require.Equal(t, int64(4+11), size)
}

func TestLocalStorage_Missing(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = st.Get(context.Background(), "nope/file.jpg")
	require.True(t, errors.Is(err, entity.ErrObjectNotFound))

	objects, err := st.List(context.Background(), "nope/")
	require.NoError(t, err)
	require.Empty(t, objects)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.Error(t, st.Put(context.Background(), "../escape.txt", []byte("x"), "text/plain"))
	require.Error(t, st.Put(context.Background(), "/etc/passwd", []byte("x"), "text/plain"))
	_, err = st.Get(context.Background(), "a/../../b")
	require.Error(t, err)
}

func TestOpenObjectStorage_FallsBackToLocal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := OpenObjectStorage(context.Background(), S3Config{}, t.TempDir(), logger)
	require.NoError(t, err)
	require.Equal(t, "local", st.Backend())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cfg := S3Config{Endpoint: "http://127.0.0.1:1", Bucket: "radiology", AccessKey: "k", SecretKey: "s"}
	st, err = OpenObjectStorage(ctx, cfg, t.TempDir(), logger)
	require.NoError(t, err)
	require.Equal(t, "local", st.Backend())
}
