// Package memorials implements memorial creation, editing, listing and removal.
package memorials

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memorial-backend/internal/lifecycle"
	"github.com/angelmondragon/memorial-backend/internal/media"
	"github.com/angelmondragon/memorial-backend/pkg/db"
	"github.com/angelmondragon/memorial-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/memorial-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
	"github.com/angelmondragon/memorial-backend/pkg/pagination"
	"github.com/angelmondragon/memorial-backend/pkg/types"
	"github.com/angelmondragon/memorial-backend/pkg/visibility"
)

type memorialRepository interface {
	Create(ctx context.Context, m *models.Memorial) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Memorial, error)
	CountVisible(ctx context.Context, now time.Time) (int64, error)
	ListVisible(ctx context.Context, now time.Time, offset, limit int) ([]models.Memorial, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Memorial, error)
	CountByMusic(ctx context.Context, path string) (int64, error)
	UpdateContent(ctx context.Context, m *models.Memorial) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type mediaService interface {
	Ingest(ctx context.Context, files []media.File, header *media.File) (*media.Result, error)
	Discard(ctx context.Context, res *media.Result) error
	ListMusic(ctx context.Context) ([]media.MusicFile, error)
	GenerateQR(ctx context.Context, memorialID uuid.UUID) *string
	DiscardQR(ctx context.Context, memorialID uuid.UUID) error
	DiscardTrack(ctx context.Context, publicPath string) (bool, error)
	MemorialURL(memorialID uuid.UUID) string
}

// Service exposes memorial content operations.
type Service interface {
	Create(ctx context.Context, actor *visibility.Actor, input ContentInput) (*CreateResult, error)
	Update(ctx context.Context, id uuid.UUID, actor *visibility.Actor, input ContentInput) (*MemorialDTO, error)
	AppendMedia(ctx context.Context, id uuid.UUID, actor *visibility.Actor, files []media.File) (*MediaResult, error)
	Get(ctx context.Context, id uuid.UUID) (*MemorialDTO, error)
	List(ctx context.Context, page *pagination.Params) (*ListResult, error)
	ListOwned(ctx context.Context, ownerID uuid.UUID) ([]OwnedMemorialDTO, error)
	Delete(ctx context.Context, id uuid.UUID, actor *visibility.Actor) error
}

// ServiceParams wires the memorial service.
type ServiceParams struct {
	Repo   memorialRepository
	Media  mediaService
	Engine *lifecycle.Engine
	Logger *logger.Logger
	Clock  func() time.Time
}

type service struct {
	repo   memorialRepository
	media  mediaService
	engine *lifecycle.Engine
	logg   *logger.Logger
	now    func() time.Time
}

// NewService constructs the memorial service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("memorial repository required")
	}
	if params.Media == nil {
		return nil, fmt.Errorf("media service required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("lifecycle engine required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:   params.Repo,
		media:  params.Media,
		engine: params.Engine,
		logg:   params.Logger,
		now:    func() time.Time { return clock().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor *visibility.Actor, input ContentInput) (*CreateResult, error) {
	now := s.now()
	m := &models.Memorial{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	if actor != nil && actor.UserID != uuid.Nil {
		owner := actor.UserID
		m.OwnerID = &owner
	}
	ent := s.engine.Initial(now)
	m.Tier, m.ExpiresAt, m.CanEdit = ent.Tier, ent.ExpiresAt, ent.CanEdit

	stored, err := s.applyContent(ctx, m, input, true)
	if err != nil {
		return nil, err
	}

	m.QRCodePath = s.media.GenerateQR(ctx, m.ID)

	if err := s.repo.Create(ctx, m); err != nil {
		s.discard(ctx, m.ID, stored)
		if m.QRCodePath != nil {
			if qrErr := s.media.DiscardQR(ctx, m.ID); qrErr != nil && s.logg != nil {
				s.logg.WarnErr(s.logg.WithMemorialID(ctx, m.ID.String()), "memorial.qr_cleanup_failed", qrErr)
			}
		}
		return nil, db.Classify(err, "failed to save memorial")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"memorial_id": m.ID.String(),
			"images":      len(m.Images),
			"videos":      len(m.Videos),
			"anonymous":   m.OwnerID == nil,
		})
		s.logg.Info(logCtx, "memorial.created")
	}

	dto := FromModel(m, now)
	dto.URL = s.media.MemorialURL(m.ID)
	return &CreateResult{Memorial: dto, Redirect: "/save/" + m.ID.String()}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, actor *visibility.Actor, input ContentInput) (*MemorialDTO, error) {
	m, err := s.loadEditable(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	previousMusic := deref(m.BackgroundMusic)
	stored, err := s.applyContent(ctx, m, input, false)
	if err != nil {
		return nil, err
	}
	if err := s.saveContent(ctx, m, stored); err != nil {
		return nil, err
	}
	s.releaseTrack(ctx, m, previousMusic)
	dto := FromModel(m, s.now())
	dto.URL = s.media.MemorialURL(m.ID)
	return &dto, nil
}

func (s *service) AppendMedia(ctx context.Context, id uuid.UUID, actor *visibility.Actor, files []media.File) (*MediaResult, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no files uploaded")
	}
	m, err := s.loadEditable(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	previousMusic := deref(m.BackgroundMusic)
	stored, err := s.applyContent(ctx, m, ContentInput{Files: files}, false)
	if err != nil {
		return nil, err
	}
	if err := s.saveContent(ctx, m, stored); err != nil {
		return nil, err
	}
	s.releaseTrack(ctx, m, previousMusic)
	return &MediaResult{
		Images:          nonNil(m.Images),
		Videos:          nonNil(m.Videos),
		BackgroundMusic: deref(m.BackgroundMusic),
	}, nil
}

func (s *service) loadEditable(ctx context.Context, id uuid.UUID, actor *visibility.Actor) (*models.Memorial, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visibility.EnsureEditable(m, actor, s.now()); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) saveContent(ctx context.Context, m *models.Memorial, stored *media.Result) error {
	affected, err := s.repo.UpdateContent(ctx, m)
	if err != nil {
		s.discard(ctx, m.ID, stored)
		return db.Classify(err, "failed to update memorial")
	}
	if affected == 0 {
		// The edit flag was cleared by a payment after the gate check.
		s.discard(ctx, m.ID, stored)
		return pkgerrors.New(pkgerrors.CodeForbidden, "This memorial can no longer be edited").
			WithDetails(map[string]any{"canEdit": false})
	}
	return nil
}

// applyContent is the shared create/edit step: it validates text fields,
// stores uploads and merges everything into m.
func (s *service) applyContent(ctx context.Context, m *models.Memorial, input ContentInput, creating bool) (*media.Result, error) {
	if input.Name != nil {
		name := types.ClipText(*input.Name, maxNameLen)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
				WithDetails(map[string]string{"name": "is required"})
		}
		m.Name = name
	} else if creating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
			WithDetails(map[string]string{"name": "is required"})
	}

	if input.HebrewName != nil {
		m.HebrewName = optional(types.ClipText(*input.HebrewName, maxNameLen))
	}
	if input.BirthDate != nil {
		m.BirthDate = optional(types.ClipText(*input.BirthDate, maxDateLen))
	}
	if input.DeathDate != nil {
		m.DeathDate = optional(types.ClipText(*input.DeathDate, maxDateLen))
	}
	if input.Biography != nil {
		m.Biography = types.ClipText(*input.Biography, maxBiographyLen)
	}
	if input.HeroSummary != nil {
		m.HeroSummary = optional(types.ClipText(*input.HeroSummary, maxHeroSummaryLen))
	}
	if input.Timeline != nil {
		m.Timeline = NormalizeTimeline(*input.Timeline)
	}
	if input.TehilimChapters != nil {
		m.TehilimChapters = dbtypes.ParseCSVList(types.ClipText(input.TehilimChapters.String(), maxListFieldLen))
	}
	if input.Mishnayot != nil {
		m.Mishnayot = dbtypes.ParseCSVList(types.ClipText(input.Mishnayot.String(), maxListFieldLen))
	}

	var libraryTrack *string
	if input.BackgroundMusicPath != nil {
		track := strings.TrimSpace(*input.BackgroundMusicPath)
		if track != "" {
			if err := s.ensureLibraryTrack(ctx, track); err != nil {
				return nil, err
			}
		}
		libraryTrack = &track
	}

	stored, err := s.media.Ingest(ctx, input.Files, input.Header)
	if err != nil {
		return nil, err
	}

	m.Images = concat(m.Images, stored.Images)
	m.Videos = concat(m.Videos, stored.Videos)
	switch {
	case stored.Audio != nil:
		m.BackgroundMusic = stored.Audio
	case libraryTrack != nil:
		m.BackgroundMusic = optional(*libraryTrack)
	}

	switch {
	case stored.Header != nil:
		m.HeroImage = stored.Header
	case input.HeroImageIndex != nil:
		idx := *input.HeroImageIndex
		if idx >= 0 && idx < len(m.Images) {
			hero := m.Images[idx]
			m.HeroImage = &hero
		}
	}

	if m.Timeline == nil {
		m.Timeline = dbtypes.Timeline{}
	}
	if m.TehilimChapters == nil {
		m.TehilimChapters = dbtypes.CSVList{}
	}
	if m.Mishnayot == nil {
		m.Mishnayot = dbtypes.CSVList{}
	}
	return stored, nil
}

func (s *service) ensureLibraryTrack(ctx context.Context, track string) error {
	tracks, err := s.media.ListMusic(ctx)
	if err != nil {
		return err
	}
	for _, t := range tracks {
		if t.Path == track {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "backgroundMusicPath must reference a track from the music library").
		WithDetails(map[string]string{"backgroundMusicPath": "unknown track"})
}

// releaseTrack deletes an uploaded background track m no longer plays once no
// memorial references it. Uploaded tracks join the music library, so a track
// another memorial picked stays. Failures only log.
func (s *service) releaseTrack(ctx context.Context, m *models.Memorial, previous string) {
	if previous == "" || previous == deref(m.BackgroundMusic) {
		return
	}
	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithMemorialID(ctx, m.ID.String())
	}
	refs, err := s.repo.CountByMusic(ctx, previous)
	if err != nil || refs > 0 {
		if err != nil && s.logg != nil {
			s.logg.WarnErr(logCtx, "memorial.track_release_failed", err)
		}
		return
	}
	if _, err := s.media.DiscardTrack(ctx, previous); err != nil && s.logg != nil {
		s.logg.WarnErr(logCtx, "memorial.track_release_failed", err)
	}
}

func (s *service) discard(ctx context.Context, id uuid.UUID, stored *media.Result) {
	if err := s.media.Discard(ctx, stored); err != nil && s.logg != nil {
		s.logg.WarnErr(s.logg.WithMemorialID(ctx, id.String()), "memorial.media_cleanup_failed", err)
	}
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*MemorialDTO, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := visibility.EnsureReadable(m, now); err != nil {
		return nil, err
	}
	dto := FromModel(m, now)
	dto.URL = s.media.MemorialURL(m.ID)
	return &dto, nil
}

func (s *service) List(ctx context.Context, page *pagination.Params) (*ListResult, error) {
	now := s.now()
	if page == nil {
		rows, err := s.repo.ListVisible(ctx, now, 0, -1)
		if err != nil {
			return nil, db.Classify(err, "failed to list memorials")
		}
		return &ListResult{Memorials: toDTOs(rows, now)}, nil
	}

	total, err := s.repo.CountVisible(ctx, now)
	if err != nil {
		return nil, db.Classify(err, "failed to count memorials")
	}
	rows, err := s.repo.ListVisible(ctx, now, page.Offset(), page.Limit)
	if err != nil {
		return nil, db.Classify(err, "failed to list memorials")
	}
	meta := pagination.NewMeta(*page, total)
	return &ListResult{Memorials: toDTOs(rows, now), Pagination: &meta}, nil
}

func (s *service) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]OwnedMemorialDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, db.Classify(err, "failed to list memorials")
	}
	now := s.now()
	out := make([]OwnedMemorialDTO, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		out = append(out, OwnedMemorialDTO{
			ID:        m.ID,
			Name:      m.Name,
			HeroImage: deref(m.HeroImage),
			Tier:      m.Tier,
			State:     lifecycle.Derive(entitlementOf(m), now),
			ExpiresAt: m.ExpiresAt,
			CanEdit:   m.CanEdit,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor *visibility.Actor) error {
	m, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := visibility.EnsureDeletable(m, actor); err != nil {
		return err
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return db.Classify(err, "failed to delete memorial")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Memorial not found")
	}
	if s.logg != nil {
		logCtx := s.logg.WithMemorialID(ctx, id.String())
		logCtx = s.logg.WithUserID(logCtx, actor.UserID.String())
		s.logg.Info(logCtx, "memorial.deleted")
	}
	return nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Memorial, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.Classify(err, "Memorial not found")
	}
	return m, nil
}

func toDTOs(rows []models.Memorial, now time.Time) []MemorialDTO {
	out := make([]MemorialDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i], now))
	}
	return out
}

func concat(existing dbtypes.StringList, added []string) dbtypes.StringList {
	out := make(dbtypes.StringList, 0, len(existing)+len(added))
	out = append(out, existing...)
	return append(out, added...)
}
