package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"marketplace/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeBaseName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"bike.jpg", "bike.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\desk photo.png`, "desk_photo.png"},
		{".hidden", "hidden"},
		{"", "photo"},
		{"/", "photo"},
		{"a b+c.JPG", "a_b_c.JPG"},
		{"사진.jpg", "사진.jpg"},
		{"자전거 사진.png", "자전거_사진.png"},
		{"../업로드/책상.webp", "책상.webp"},
		{"cafe\u0301.jpg", "cafe\u0301.jpg"},
		{"tab\there.jpg", "tab_here.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeBaseName(tt.in))
		})
	}

	long := strings.Repeat("x", 300) + ".jpg"
	got := sanitizeBaseName(long)
	assert.Len(t, got, maxBaseNameLen)
	assert.True(t, strings.HasSuffix(got, ".jpg"))

	// Multibyte names are capped by runes, never mid-rune.
	longKorean := strings.Repeat("가", 150) + ".jpg"
	got = sanitizeBaseName(longKorean)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxBaseNameLen, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "가.jpg"))
}

func TestObjectName_UniqueAndTraceable(t *testing.T) {
	a := ObjectName("bike.jpg")
	b := ObjectName("bike.jpg")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "_bike.jpg"))
}

func TestLocalStore_Save(t *testing.T) {
	root := filepath.Join(t.TempDir(), "photos")
	store, err := NewLocalStore(root, "/photos/")
	require.NoError(t, err)

	p, err := store.Save(context.Background(), []byte("jpeg-bytes"), "front.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "/photos/"))
	assert.True(t, strings.HasSuffix(p, "_front.jpg"))

	written, err := os.ReadFile(filepath.Join(root, strings.TrimPrefix(p, "/photos/")))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), written)

	info, err := os.Stat(filepath.Join(root, strings.TrimPrefix(p, "/photos/")))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Equal(t, "local", BackendOf(store))
}

func TestLocalStore_SaveKeepsNonASCIIName(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "/photos")
	require.NoError(t, err)

	p, err := store.Save(context.Background(), []byte("x"), "사진.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, "_사진.jpg"))

	_, err = os.Stat(filepath.Join(root, strings.TrimPrefix(p, "/photos/")))
	require.NoError(t, err)
}

func TestLocalStore_SaveCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/photos")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Save(ctx, []byte("x"), "a.jpg")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLocalStore_RequiresRoot(t *testing.T) {
	_, err := NewLocalStore("", "/photos")
	assert.Error(t, err)
}

type putterStub struct {
	bucket, key string
	body        []byte
	opts        minio.PutObjectOptions
	err         error
}

func (p *putterStub) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if p.err != nil {
		return minio.UploadInfo{}, p.err
	}
	p.bucket, p.key, p.opts = bucket, key, opts
	p.body, _ = io.ReadAll(r)
	return minio.UploadInfo{Bucket: bucket, Key: key}, nil
}

func TestS3Store_Save(t *testing.T) {
	putter := &putterStub{}
	store := &S3Store{client: putter, bucket: "listing-photos", baseURL: "http://minio:9000"}

	url, err := store.Save(context.Background(), []byte("data"), "lamp.png")
	require.NoError(t, err)

	assert.Equal(t, "listing-photos", putter.bucket)
	assert.True(t, strings.HasPrefix(putter.key, "photos/"))
	assert.True(t, strings.HasSuffix(putter.key, "_lamp.png"))
	assert.Equal(t, []byte("data"), putter.body)
	assert.Equal(t, "lamp.png", putter.opts.UserMetadata["original-filename"])
	assert.Equal(t, "http://minio:9000/listing-photos/"+putter.key, url)
	assert.Equal(t, "s3", BackendOf(store))
}

func TestS3Store_SaveError(t *testing.T) {
	store := &S3Store{client: &putterStub{err: errors.New("access denied")}, bucket: "b", baseURL: "http://minio:9000"}
	_, err := store.Save(context.Background(), []byte("data"), "lamp.png")
	assert.Error(t, err)
}

type bufferWriter struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (w *bufferWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestGCSStore_Save(t *testing.T) {
	w := &bufferWriter{}
	var gotKey, gotType string
	store := &GCSStore{
		bucket:        "market-photos",
		publicBaseURL: "https://storage.googleapis.com/",
		newWriter: func(_ context.Context, key, contentType string) io.WriteCloser {
			gotKey, gotType = key, contentType
			return w
		},
	}

	url, err := store.Save(context.Background(), []byte("plain text"), "note.txt")
	require.NoError(t, err)
	assert.True(t, w.closed)
	assert.Equal(t, "plain text", w.String())
	assert.True(t, strings.HasSuffix(gotKey, "_note.txt"))
	assert.Contains(t, gotType, "text/plain")
	assert.Equal(t, "https://storage.googleapis.com/market-photos/"+gotKey, url)
}

func TestGCSStore_SaveCommitError(t *testing.T) {
	store := &GCSStore{
		bucket: "b",
		newWriter: func(context.Context, string, string) io.WriteCloser {
			return &bufferWriter{closeErr: errors.New("precondition failed")}
		},
	}
	_, err := store.Save(context.Background(), []byte("x"), "a.jpg")
	assert.Error(t, err)
}

func TestNew_SelectsLocal(t *testing.T) {
	cfg := &config.Config{
		PhotoStorage:      config.PhotoStorageLocal,
		PhotoUploadDir:    t.TempDir(),
		PhotoPublicPrefix: "/photos",
	}
	store, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), &config.Config{PhotoStorage: "ftp"})
	assert.Error(t, err)
}

func TestImageDimensions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	w, h := ImageDimensions(buf.Bytes())
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)
	assert.Equal(t, "image/png", ContentType(buf.Bytes()))

	w, h = ImageDimensions([]byte("not an image"))
	assert.Zero(t, w)
	assert.Zero(t, h)
}
