// Package media validates and stores uploaded memorial assets.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/memorial-backend/pkg/config"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
	"github.com/angelmondragon/memorial-backend/pkg/storage"
)

const sniffBytes = 3072

type qrGenerator interface {
	Generate(ctx context.Context, name, content string) (string, error)
	Remove(ctx context.Context, name string) error
}

type mediaMetrics interface {
	AddMediaStored(kind string, n int)
	IncQRFailure()
}

// Service exposes ingest, cleanup, the music library and QR rendering.
type Service interface {
	Ingest(ctx context.Context, files []File, header *File) (*Result, error)
	Discard(ctx context.Context, res *Result) error
	ListMusic(ctx context.Context) ([]MusicFile, error)
	GenerateQR(ctx context.Context, memorialID uuid.UUID) *string
	DiscardQR(ctx context.Context, memorialID uuid.UUID) error
	DiscardTrack(ctx context.Context, publicPath string) (bool, error)
	MemorialURL(memorialID uuid.UUID) string
}

// ServiceParams wires the media service.
type ServiceParams struct {
	Store   storage.Store
	QR      qrGenerator
	Metrics mediaMetrics
	Logger  *logger.Logger
	Config  config.MediaConfig
	BaseURL string
}

type service struct {
	store    storage.Store
	qr       qrGenerator
	metrics  mediaMetrics
	logg     *logger.Logger
	maxFiles int
	maxBytes int64
	baseURL  string
}

// NewService constructs a media service backed by the provided store.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("media store required")
	}
	if params.Config.MaxFiles <= 0 {
		return nil, fmt.Errorf("max files must be positive")
	}
	if params.Config.MaxFileBytes() <= 0 {
		return nil, fmt.Errorf("max file size must be positive")
	}
	return &service{
		store:    params.Store,
		qr:       params.QR,
		metrics:  params.Metrics,
		logg:     params.Logger,
		maxFiles: params.Config.MaxFiles,
		maxBytes: params.Config.MaxFileBytes(),
		baseURL:  strings.TrimRight(params.BaseURL, "/"),
	}, nil
}

type plannedFile struct {
	file   File
	kind   enums.MediaKind
	ext    string
	header bool
}

// Ingest validates the whole batch before writing anything, then stores each
// file under a fresh uuid name. A failed write removes what the batch stored.
func (s *service) Ingest(ctx context.Context, files []File, header *File) (*Result, error) {
	plan, err := s.plan(files, header)
	if err != nil {
		return nil, err
	}
	res := &Result{Images: []string{}, Videos: []string{}}
	if len(plan) == 0 {
		return res, nil
	}

	for _, p := range plan {
		if err := s.sniff(p); err != nil {
			return nil, err
		}
	}

	stored := map[enums.MediaKind]int{}
	for _, p := range plan {
		key := path.Join(dirForKind(p.kind), uuid.NewString()+p.ext)
		publicPath, err := s.put(ctx, key, p.file)
		if err != nil {
			if cleanupErr := s.Discard(ctx, res); cleanupErr != nil {
				err = multierr.Append(err, cleanupErr)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to store uploaded file")
		}
		res.keys = append(res.keys, key)
		stored[p.kind]++

		switch {
		case p.header:
			hp := publicPath
			res.Header = &hp
		case p.kind == enums.MediaKindVideo:
			res.Videos = append(res.Videos, publicPath)
		case p.kind == enums.MediaKindAudio:
			ap := publicPath
			res.Audio = &ap
		default:
			res.Images = append(res.Images, publicPath)
		}
	}

	if s.metrics != nil {
		for kind, n := range stored {
			s.metrics.AddMediaStored(string(kind), n)
		}
	}
	return res, nil
}

func (s *service) plan(files []File, header *File) ([]plannedFile, error) {
	total := len(files)
	if header != nil {
		total++
	}
	if total > s.maxFiles {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("too many files; at most %d per request", s.maxFiles)).
			WithDetails(map[string]any{"maxFiles": s.maxFiles, "received": total})
	}

	plan := make([]plannedFile, 0, total)
	audio := 0
	check := func(f File, isHeader bool) error {
		if f.Open == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "file body missing").
				WithDetails(map[string]any{"file": f.FileName})
		}
		if f.Size > s.maxBytes {
			return pkgerrors.New(pkgerrors.CodeValidation, "file exceeds the size limit").
				WithDetails(map[string]any{"file": f.FileName, "maxBytes": s.maxBytes})
		}
		kind, ext, err := classify(f.FileName, f.ContentType)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Only images, videos and audio files are allowed").
				WithDetails(map[string]any{"file": f.FileName, "reason": err.Error()})
		}
		if isHeader && kind != enums.MediaKindImage {
			return pkgerrors.New(pkgerrors.CodeValidation, "headerImage must be an image").
				WithDetails(map[string]any{"file": f.FileName})
		}
		if kind == enums.MediaKindAudio {
			audio++
			if audio > 1 {
				return pkgerrors.New(pkgerrors.CodeValidation, "only one background audio file is allowed")
			}
		}
		plan = append(plan, plannedFile{file: f, kind: kind, ext: ext, header: isHeader})
		return nil
	}

	for _, f := range files {
		if err := check(f, false); err != nil {
			return nil, err
		}
	}
	if header != nil {
		if err := check(*header, true); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (s *service) sniff(p plannedFile) error {
	rc, err := p.file.Open()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload").
			WithDetails(map[string]any{"file": p.file.FileName})
	}
	defer rc.Close()

	buf := make([]byte, sniffBytes)
	n, _ := io.ReadFull(rc, buf)
	detected := mimetype.Detect(buf[:n])
	if !contentMatches(p.kind, detected) {
		return pkgerrors.New(pkgerrors.CodeValidation, "file content does not match its declared type").
			WithDetails(map[string]any{"file": p.file.FileName, "detected": detected.String()})
	}
	return nil
}

func (s *service) put(ctx context.Context, key string, f File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	contentType, _ := normalizeMimeType(f.ContentType)
	return s.store.Put(ctx, key, rc, f.Size, contentType)
}

// Discard deletes every object a previous Ingest stored.
func (s *service) Discard(ctx context.Context, res *Result) error {
	if res.Empty() {
		return nil
	}
	var errs error
	for _, key := range res.keys {
		errs = multierr.Append(errs, s.store.Delete(ctx, key))
	}
	res.keys = nil
	return errs
}

// MemorialURL is the public page a QR code points at.
func (s *service) MemorialURL(memorialID uuid.UUID) string {
	return s.baseURL + "/memorial/" + memorialID.String()
}

// GenerateQR renders the memorial link. Failures are logged and yield nil.
func (s *service) GenerateQR(ctx context.Context, memorialID uuid.UUID) *string {
	if s.qr == nil {
		return nil
	}
	p, err := s.qr.Generate(ctx, memorialID.String(), s.MemorialURL(memorialID))
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncQRFailure()
		}
		if s.logg != nil {
			s.logg.WarnErr(s.logg.WithMemorialID(ctx, memorialID.String()), "memorial.qr_failed", err)
		}
		return nil
	}
	return &p
}

// DiscardQR removes the image GenerateQR stored for a memorial.
func (s *service) DiscardQR(ctx context.Context, memorialID uuid.UUID) error {
	if s.qr == nil {
		return nil
	}
	return s.qr.Remove(ctx, memorialID.String())
}

// DiscardTrack deletes a background audio file that Ingest stored. Paths
// outside the audio directory, and tracks whose names were not generated by
// Ingest, are left alone and reported as not removed.
func (s *service) DiscardTrack(ctx context.Context, publicPath string) (bool, error) {
	prefix := strings.TrimSuffix(s.store.PublicPath(dirForKind(enums.MediaKindAudio)+"/"), "/") + "/"
	name, ok := strings.CutPrefix(strings.TrimSpace(publicPath), prefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return false, nil
	}
	if _, err := uuid.Parse(strings.TrimSuffix(name, path.Ext(name))); err != nil {
		return false, nil
	}
	if err := s.store.Delete(ctx, path.Join(dirForKind(enums.MediaKindAudio), name)); err != nil {
		return false, err
	}
	return true, nil
}
