package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/memorial-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
	"github.com/angelmondragon/memorial-backend/pkg/storage"
	"github.com/angelmondragon/memorial-backend/pkg/storage/local"
)

var (
	pngBody  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	jpegBody = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, make([]byte, 32)...)
	mp4Body  = append([]byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom"), make([]byte, 32)...)
	mp3Body  = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)
)

func memFile(name, contentType string, body []byte) File {
	return File{
		FileName:    name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		},
	}
}

type countingMetrics struct {
	stored    map[string]int
	qrFailure int
}

func (m *countingMetrics) AddMediaStored(kind string, n int) {
	if m.stored == nil {
		m.stored = map[string]int{}
	}
	m.stored[kind] += n
}

func (m *countingMetrics) IncQRFailure() { m.qrFailure++ }

func newTestService(t *testing.T, store storage.Store, maxFiles int) (Service, *countingMetrics) {
	t.Helper()
	metrics := &countingMetrics{}
	svc, err := NewService(ServiceParams{
		Store:   store,
		Metrics: metrics,
		Config:  config.MediaConfig{MaxFiles: maxFiles, MaxFileMB: 1},
		BaseURL: "https://memorial.example/",
	})
	require.NoError(t, err)
	return svc, metrics
}

func localStore(t *testing.T) (*local.Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := local.New(root, "/uploads")
	require.NoError(t, err)
	return store, root
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func requireValidation(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "expected validation error, got %v", err)
}

func TestIngestClassifiesByDeclaredType(t *testing.T) {
	store, root := localStore(t)
	svc, metrics := newTestService(t, store, 20)

	header := memFile("cover.jpg", "image/jpeg", jpegBody)
	res, err := svc.Ingest(context.Background(), []File{
		memFile("photo.png", "image/png", pngBody),
		memFile("clip.mp4", "video/mp4", mp4Body),
		memFile("song.mp3", "audio/mpeg", mp3Body),
	}, &header)
	require.NoError(t, err)

	require.Len(t, res.Images, 1)
	assert.True(t, strings.HasPrefix(res.Images[0], "/uploads/images/"))
	assert.True(t, strings.HasSuffix(res.Images[0], ".png"))
	require.Len(t, res.Videos, 1)
	assert.True(t, strings.HasPrefix(res.Videos[0], "/uploads/videos/"))
	require.NotNil(t, res.Audio)
	assert.True(t, strings.HasPrefix(*res.Audio, "/uploads/audio/"))
	require.NotNil(t, res.Header)
	assert.True(t, strings.HasPrefix(*res.Header, "/uploads/images/"))
	assert.NotContains(t, res.Images, *res.Header)

	assert.Equal(t, 4, countFiles(t, root))
	assert.Equal(t, 2, metrics.stored["image"])
	assert.Equal(t, 1, metrics.stored["video"])
	assert.Equal(t, 1, metrics.stored["audio"])
}

func TestIngestNoFiles(t *testing.T) {
	store, _ := localStore(t)
	svc, _ := newTestService(t, store, 20)

	res, err := svc.Ingest(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Images)
	assert.Empty(t, res.Videos)
	assert.Nil(t, res.Audio)
	assert.True(t, res.Empty())
}

func TestIngestRejectsBeforePersisting(t *testing.T) {
	html := []byte("<!DOCTYPE html><html><body><script>alert(1)</script></body></html>")
	cases := []struct {
		name     string
		maxFiles int
		files    []File
		header   *File
	}{
		{
			name:     "too many files",
			maxFiles: 2,
			files: []File{
				memFile("a.png", "image/png", pngBody),
				memFile("b.png", "image/png", pngBody),
				memFile("c.png", "image/png", pngBody),
			},
		},
		{
			name:  "oversized file",
			files: []File{memFile("a.png", "image/png", pngBody), memFile("big.png", "image/png", make([]byte, (1<<20)+1))},
		},
		{
			name:  "extension not allowed",
			files: []File{memFile("a.png", "image/png", pngBody), memFile("doc.pdf", "application/pdf", []byte("%PDF-1.4"))},
		},
		{
			name:  "declared type mismatches extension",
			files: []File{memFile("a.png", "image/png", pngBody), memFile("photo.png", "video/mp4", pngBody)},
		},
		{
			name:  "html disguised as image",
			files: []File{memFile("a.png", "image/png", pngBody), memFile("evil.png", "image/png", html)},
		},
		{
			name:  "audio declared as image",
			files: []File{memFile("a.png", "image/png", pngBody), memFile("song.png", "image/png", mp3Body)},
		},
		{
			name:  "two audio files",
			files: []File{memFile("a.mp3", "audio/mpeg", mp3Body), memFile("b.mp3", "audio/mpeg", mp3Body)},
		},
		{
			name:   "header must be an image",
			files:  []File{memFile("a.png", "image/png", pngBody)},
			header: func() *File { f := memFile("clip.mp4", "video/mp4", mp4Body); return &f }(),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			maxFiles := tc.maxFiles
			if maxFiles == 0 {
				maxFiles = 20
			}
			store, root := localStore(t)
			svc, _ := newTestService(t, store, maxFiles)
			_, err := svc.Ingest(context.Background(), tc.files, tc.header)
			requireValidation(t, err)
			assert.Equal(t, 0, countFiles(t, root))
		})
	}
}

type flakyStore struct {
	storage.Store
	puts    int
	failAt  int
	deleted []string
}

func (f *flakyStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	f.puts++
	if f.puts == f.failAt {
		return "", errors.New("disk full")
	}
	return f.Store.Put(ctx, key, body, size, contentType)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return f.Store.Delete(ctx, key)
}

func TestIngestCleansUpOnStoreFailure(t *testing.T) {
	inner, root := localStore(t)
	store := &flakyStore{Store: inner, failAt: 2}
	svc, _ := newTestService(t, store, 20)

	_, err := svc.Ingest(context.Background(), []File{
		memFile("a.png", "image/png", pngBody),
		memFile("b.png", "image/png", pngBody),
	}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))
	require.Len(t, store.deleted, 1)
	assert.True(t, strings.HasPrefix(store.deleted[0], "images/"))
	assert.Equal(t, 0, countFiles(t, root))
}

func TestDiscardRemovesStoredFiles(t *testing.T) {
	store, root := localStore(t)
	svc, _ := newTestService(t, store, 20)

	res, err := svc.Ingest(context.Background(), []File{memFile("a.png", "image/png", pngBody)}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, countFiles(t, root))

	require.NoError(t, svc.Discard(context.Background(), res))
	assert.Equal(t, 0, countFiles(t, root))
	assert.NoError(t, svc.Discard(context.Background(), nil))
}

func TestListMusic(t *testing.T) {
	store, root := localStore(t)
	svc, _ := newTestService(t, store, 20)

	audioDir := filepath.Join(root, "audio")
	require.NoError(t, os.MkdirAll(audioDir, 0o755))
	for _, name := range []string{"Adon Olam.mp3", "notes.txt", "niggun.aac", ".hidden.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(audioDir, name), []byte("x"), 0o644))
	}

	tracks, err := svc.ListMusic(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, MusicFile{Name: "Adon Olam.mp3", Path: "/uploads/audio/Adon Olam.mp3", DisplayName: "Adon Olam"}, tracks[0])
	assert.Equal(t, "niggun", tracks[1].DisplayName)
}

func TestListMusicMissingDirectory(t *testing.T) {
	store, _ := localStore(t)
	svc, _ := newTestService(t, store, 20)

	tracks, err := svc.ListMusic(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

type stubQR struct {
	name    string
	content string
	removed string
	err     error
}

func (s *stubQR) Remove(_ context.Context, name string) error {
	s.removed = name
	return nil
}

func (s *stubQR) Generate(_ context.Context, name, content string) (string, error) {
	s.name, s.content = name, content
	if s.err != nil {
		return "", s.err
	}
	return "/qrcodes/" + name + ".png", nil
}

func TestGenerateQR(t *testing.T) {
	store, _ := localStore(t)
	qr := &stubQR{}
	metrics := &countingMetrics{}
	svc, err := NewService(ServiceParams{
		Store:   store,
		QR:      qr,
		Metrics: metrics,
		Config:  config.MediaConfig{MaxFiles: 20, MaxFileMB: 1},
		BaseURL: "https://memorial.example/",
	})
	require.NoError(t, err)

	id := uuid.New()
	got := svc.GenerateQR(context.Background(), id)
	require.NotNil(t, got)
	assert.Equal(t, "/qrcodes/"+id.String()+".png", *got)
	assert.Equal(t, "https://memorial.example/memorial/"+id.String(), qr.content)

	require.NoError(t, svc.DiscardQR(context.Background(), id))
	assert.Equal(t, id.String(), qr.removed)

	qr.err = errors.New("encoder broke")
	assert.Nil(t, svc.GenerateQR(context.Background(), id))
	assert.Equal(t, 1, metrics.qrFailure)
}

func TestDiscardTrackOnlyRemovesIngestedAudio(t *testing.T) {
	store, root := localStore(t)
	svc, _ := newTestService(t, store, 20)

	res, err := svc.Ingest(context.Background(), []File{memFile("song.mp3", "audio/mpeg", mp3Body)}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Audio)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "audio"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "audio", "Adon Olam.mp3"), mp3Body, 0o644))

	removed, err := svc.DiscardTrack(context.Background(), "/uploads/audio/Adon Olam.mp3")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.FileExists(t, filepath.Join(root, "audio", "Adon Olam.mp3"))

	removed, err = svc.DiscardTrack(context.Background(), "/uploads/images/"+uuid.NewString()+".png")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = svc.DiscardTrack(context.Background(), *res.Audio)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoFileExists(t, filepath.Join(root, strings.TrimPrefix(*res.Audio, "/uploads/")))
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{Config: config.MediaConfig{MaxFiles: 1, MaxFileMB: 1}})
	require.Error(t, err)

	store, _ := localStore(t)
	_, err = NewService(ServiceParams{Store: store, Config: config.MediaConfig{MaxFileMB: 1}})
	require.Error(t, err)
}
