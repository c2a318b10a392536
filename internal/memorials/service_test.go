package memorials

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/memorial-backend/internal/lifecycle"
	"github.com/angelmondragon/memorial-backend/internal/media"
	"github.com/angelmondragon/memorial-backend/pkg/config"
	"github.com/angelmondragon/memorial-backend/pkg/db/dbtest"
	"github.com/angelmondragon/memorial-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/memorial-backend/pkg/db/types"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
	"github.com/angelmondragon/memorial-backend/pkg/pagination"
	"github.com/angelmondragon/memorial-backend/pkg/qrcode"
	"github.com/angelmondragon/memorial-backend/pkg/storage/local"
	"github.com/angelmondragon/memorial-backend/pkg/visibility"
)

var pngBody = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

type fixture struct {
	svc   Service
	repo  *Repository
	root  string
	clock *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	store, err := local.New(root, "/uploads")
	require.NoError(t, err)
	mediaSvc, err := media.NewService(media.ServiceParams{
		Store:   store,
		Config:  config.MediaConfig{MaxFiles: 20, MaxFileMB: 1},
		BaseURL: "https://memorial.example",
	})
	require.NoError(t, err)

	now := base
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Media:  mediaSvc,
		Engine: lifecycle.NewEngine(config.LifecycleConfig{GraceWindow: 48 * time.Hour, AnnualTerm: 365 * 24 * time.Hour}),
		Clock:  func() time.Time { return now },
	})
	require.NoError(t, err)
	return &fixture{svc: svc, repo: repo, root: root, clock: &now}
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func str(s string) *string { return &s }

func pngFile(name string) media.File {
	return media.File{
		FileName:    name,
		ContentType: "image/png",
		Size:        int64(len(pngBody)),
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(pngBody)), nil },
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, code), "expected %s, got %v", code, err)
}

func TestCreateWithoutFilesIsTemporary(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Create(context.Background(), nil, ContentInput{Name: str("Test")})
	require.NoError(t, err)

	m := res.Memorial
	assert.Equal(t, "Test", m.Name)
	assert.Equal(t, enums.TierTemporary, m.Tier)
	assert.Equal(t, lifecycle.StateTemporary, m.State)
	require.NotNil(t, m.ExpiresAt)
	assert.Equal(t, base.Add(48*time.Hour), *m.ExpiresAt)
	assert.True(t, m.CanEdit)
	assert.Nil(t, m.OwnerID)
	assert.Empty(t, m.Images)
	assert.Equal(t, "/save/"+m.ID.String(), res.Redirect)
	assert.Equal(t, "https://memorial.example/memorial/"+m.ID.String(), m.URL)

	stored, err := f.repo.FindByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TierTemporary, stored.Tier)
}

func TestCreateRequiresName(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), nil, ContentInput{Name: str("   "), Files: []media.File{pngFile("a.png")}})
	requireCode(t, err, pkgerrors.CodeValidation)

	entries, _ := os.ReadDir(filepath.Join(f.root, "images"))
	assert.Empty(t, entries)
}

func TestCreateStoresMediaAndTimeline(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	timeline := dbtypes.Timeline{
		{Year: " 1950 ", Title: "Born", Description: "Tel Aviv"},
		{},
		{Year: "1975", Title: "Married", Description: "Haifa"},
		{Year: "2024", Title: "Passed", Description: "Jerusalem"},
	}
	idx := 1
	res, err := f.svc.Create(context.Background(), &visibility.Actor{UserID: owner, Role: enums.SystemRoleUser}, ContentInput{
		Name:            str("Sarah"),
		HebrewName:      str("שרה"),
		Timeline:        &timeline,
		TehilimChapters: &dbtypes.CSVList{"23", " 121 "},
		HeroImageIndex:  &idx,
		Files:           []media.File{pngFile("a.png"), pngFile("b.png")},
	})
	require.NoError(t, err)

	m := res.Memorial
	require.Len(t, m.Images, 2)
	assert.Equal(t, m.Images[1], m.HeroImage)
	assert.Equal(t, []string{"23", "121"}, m.TehilimChapters)
	require.NotNil(t, m.OwnerID)
	assert.Equal(t, owner, *m.OwnerID)

	got, err := f.svc.Get(context.Background(), m.ID)
	require.NoError(t, err)
	require.Len(t, got.Timeline, 3)
	assert.Equal(t, dbtypes.TimelineEntry{Year: "1950", Title: "Born", Description: "Tel Aviv"}, got.Timeline[0])
	assert.Equal(t, "Married", got.Timeline[1].Title)
	assert.Equal(t, "Jerusalem", got.Timeline[2].Description)
	assert.Equal(t, "שרה", got.HebrewName)
}

func TestCreateRejectsUnknownLibraryTrack(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), nil, ContentInput{Name: str("Test"), BackgroundMusicPath: str("/uploads/audio/missing.mp3")})
	requireCode(t, err, pkgerrors.CodeValidation)

	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "audio"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "audio", "niggun.mp3"), []byte("x"), 0o644))
	res, err := f.svc.Create(context.Background(), nil, ContentInput{Name: str("Test"), BackgroundMusicPath: str("/uploads/audio/niggun.mp3")})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/audio/niggun.mp3", res.Memorial.BackgroundMusic)
}

func TestGetExpiredReturnsExpired(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Create(context.Background(), nil, ContentInput{Name: str("Test")})
	require.NoError(t, err)

	f.advance(48 * time.Hour)
	_, err = f.svc.Get(context.Background(), res.Memorial.ID)
	require.NoError(t, err)

	f.advance(time.Second)
	_, err = f.svc.Get(context.Background(), res.Memorial.ID)
	requireCode(t, err, pkgerrors.CodeExpired)

	_, err = f.svc.Get(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateByOwner(t *testing.T) {
	f := newFixture(t)
	owner := &visibility.Actor{UserID: uuid.New(), Role: enums.SystemRoleUser}
	res, err := f.svc.Create(context.Background(), owner, ContentInput{Name: str("Before"), Files: []media.File{pngFile("a.png")}})
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), res.Memorial.ID, owner, ContentInput{
		Name:      str("After"),
		Biography: str("A life well lived"),
		Files:     []media.File{pngFile("b.png")},
	})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, "A life well lived", updated.Biography)
	require.Len(t, updated.Images, 2)
	assert.Equal(t, res.Memorial.Images[0], updated.Images[0])
	assert.Equal(t, enums.TierTemporary, updated.Tier)
}

func TestUpdateRejectedWhenLocked(t *testing.T) {
	f := newFixture(t)
	owner := &visibility.Actor{UserID: uuid.New(), Role: enums.SystemRoleUser}
	admin := &visibility.Actor{UserID: uuid.New(), Role: enums.SystemRoleAdmin}
	res, err := f.svc.Create(context.Background(), owner, ContentInput{Name: str("Locked")})
	require.NoError(t, err)

	_, err = f.repo.UpdateEntitlement(context.Background(), res.Memorial.ID, lifecycle.Entitlement{Tier: enums.TierPermanent, CanEdit: false})
	require.NoError(t, err)

	for _, actor := range []*visibility.Actor{owner, admin, {UserID: uuid.New(), Role: enums.SystemRoleUser}} {
		_, err = f.svc.Update(context.Background(), res.Memorial.ID, actor, ContentInput{Name: str("Changed")})
		requireCode(t, err, pkgerrors.CodeForbidden)
	}
	_, err = f.svc.Update(context.Background(), res.Memorial.ID, nil, ContentInput{Name: str("Changed")})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	got, err := f.svc.Get(context.Background(), res.Memorial.ID)
	require.NoError(t, err)
	assert.Equal(t, "Locked", got.Name)
	assert.Equal(t, lifecycle.StatePermanentLocked, got.State)
}

func TestUpdateAnonymousMemorialForbidden(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Create(context.Background(), nil, ContentInput{Name: str("Anonymous")})
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), res.Memorial.ID, &visibility.Actor{UserID: uuid.New(), Role: enums.SystemRoleUser}, ContentInput{Name: str("Mine")})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestAppendMediaReplacesAudio(t *testing.T) {
	f := newFixture(t)
	owner := &visibility.Actor{UserID: uuid.New(), Role: enums.SystemRoleUser}
	res, err := f.svc.Create(context.Background(), owner, ContentInput{Name: str("Music")})
	require.NoError(t, err)

	mp3 := append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)
	audio := func(name string) media.File {
		return media.File{
			FileName:    name,
			ContentType: "audio/mpeg",
			Size:        int64(len(mp3)),
			Open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(mp3)), nil },
		}
	}

	first, err := f.svc.AppendMedia(context.Background(), res.Memorial.ID, owner, []media.File{audio("one.mp3"), pngFile("a.png")})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first.BackgroundMusic, "/uploads/audio/"))
	assert.Len(t, first.Images, 1)

	second, err := f.svc.AppendMedia(context.Background(), res.Memorial.ID, owner, []media.File{audio("two.mp3")})
	require.NoError(t, err)
	assert.NotEqual(t, first.BackgroundMusic, second.BackgroundMusic)
	assert.Len(t, second.Images, 1)
	assert.NoFileExists(t, filepath.Join(f.root, strings.TrimPrefix(first.BackgroundMusic, "/uploads/")))
	assert.FileExists(t, filepath.Join(f.root, strings.TrimPrefix(second.BackgroundMusic, "/uploads/")))

	_, err = f.svc.AppendMedia(context.Background(), res.Memorial.ID, owner, nil)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestListPaginatesAndHidesExpired(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		_, err := f.svc.Create(context.Background(), nil, ContentInput{Name: str("m")})
		require.NoError(t, err)
		f.advance(time.Minute)
	}

	page, err := f.svc.List(context.Background(), &pagination.Params{Page: 2, Limit: 10})
	require.NoError(t, err)
	require.NotNil(t, page.Pagination)
	assert.Len(t, page.Memorials, 2)
	assert.EqualValues(t, 12, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.False(t, page.Pagination.HasNextPage)
	assert.True(t, page.Pagination.HasPrevPage)

	all, err := f.svc.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, all.Pagination)
	assert.Len(t, all.Memorials, 12)
	assert.True(t, all.Memorials[0].CreatedAt.After(all.Memorials[11].CreatedAt))

	f.advance(72 * time.Hour)
	none, err := f.svc.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none.Memorials)
}

func TestListOwnedDerivesState(t *testing.T) {
	f := newFixture(t)
	owner := &visibility.Actor{UserID: uuid.New(), Role: enums.SystemRoleUser}
	first, err := f.svc.Create(context.Background(), owner, ContentInput{Name: str("first")})
	require.NoError(t, err)
	f.advance(time.Hour)
	_, err = f.svc.Create(context.Background(), owner, ContentInput{Name: str("second")})
	require.NoError(t, err)

	_, err = f.repo.UpdateEntitlement(context.Background(), first.Memorial.ID, lifecycle.Entitlement{Tier: enums.TierPermanent, CanEdit: true})
	require.NoError(t, err)
	f.advance(60 * time.Hour)

	owned, err := f.svc.ListOwned(context.Background(), owner.UserID)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "second", owned[0].Name)
	assert.Equal(t, lifecycle.StateExpired, owned[0].State)
	assert.Equal(t, lifecycle.StatePermanentEditable, owned[1].State)
}

func TestDeleteRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	owner := &visibility.Actor{UserID: uuid.New(), Role: enums.SystemRoleUser}
	res, err := f.svc.Create(context.Background(), owner, ContentInput{Name: str("Test")})
	require.NoError(t, err)

	requireCode(t, f.svc.Delete(context.Background(), res.Memorial.ID, owner), pkgerrors.CodeForbidden)

	admin := &visibility.Actor{UserID: uuid.New(), Role: enums.SystemRoleAdmin}
	require.NoError(t, f.svc.Delete(context.Background(), res.Memorial.ID, admin))
	requireCode(t, f.svc.Delete(context.Background(), res.Memorial.ID, admin), pkgerrors.CodeNotFound)
}

func TestReplacedTrackKeptWhileAnotherMemorialPlaysIt(t *testing.T) {
	f := newFixture(t)
	owner := &visibility.Actor{UserID: uuid.New(), Role: enums.SystemRoleUser}
	mp3 := append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)
	track := media.File{
		FileName:    "shared.mp3",
		ContentType: "audio/mpeg",
		Size:        int64(len(mp3)),
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(mp3)), nil },
	}

	first, err := f.svc.Create(context.Background(), owner, ContentInput{Name: str("First")})
	require.NoError(t, err)
	uploaded, err := f.svc.AppendMedia(context.Background(), first.Memorial.ID, owner, []media.File{track})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), nil, ContentInput{Name: str("Second"), BackgroundMusicPath: str(uploaded.BackgroundMusic)})
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), first.Memorial.ID, owner, ContentInput{BackgroundMusicPath: str("")})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(f.root, strings.TrimPrefix(uploaded.BackgroundMusic, "/uploads/")))
}

type failingCreateRepo struct {
	*Repository
}

func (failingCreateRepo) Create(context.Context, *models.Memorial) error {
	return errors.New("insert failed")
}

func TestCreateFailureRemovesQRAndUploads(t *testing.T) {
	root := t.TempDir()
	store, err := local.New(root, "/uploads")
	require.NoError(t, err)
	qrRoot := t.TempDir()
	qrStore, err := local.New(qrRoot, "/qrcodes")
	require.NoError(t, err)
	mediaSvc, err := media.NewService(media.ServiceParams{
		Store:   store,
		QR:      qrcode.NewGenerator(qrStore, 64),
		Config:  config.MediaConfig{MaxFiles: 5, MaxFileMB: 1},
		BaseURL: "https://memorial.example",
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:   failingCreateRepo{NewRepository(dbtest.Open(t))},
		Media:  mediaSvc,
		Engine: lifecycle.NewEngine(config.LifecycleConfig{}),
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), nil, ContentInput{Name: str("Lost"), Files: []media.File{pngFile("a.png")}})
	require.Error(t, err)

	qrs, err := os.ReadDir(qrRoot)
	require.NoError(t, err)
	assert.Empty(t, qrs)
	images, _ := os.ReadDir(filepath.Join(root, "images"))
	assert.Empty(t, images)
}
