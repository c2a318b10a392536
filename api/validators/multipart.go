package validators

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/memorial-backend/internal/media"
	"github.com/angelmondragon/memorial-backend/internal/memorials"
	dbtypes "github.com/angelmondragon/memorial-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
)

const (
	fieldFiles       = "files"
	fieldHeaderImage = "headerImage"
)

// memorialJSON is the JSON form of an edit. Lists may arrive as arrays or as
// comma-joined strings.
type memorialJSON struct {
	Name                *string                  `json:"name"`
	HebrewName          *string                  `json:"hebrewName"`
	BirthDate           *string                  `json:"birthDate"`
	DeathDate           *string                  `json:"deathDate"`
	Biography           *string                  `json:"biography"`
	HeroSummary         *string                  `json:"heroSummary"`
	Timeline            *[]dbtypes.TimelineEntry `json:"timeline"`
	TehilimChapters     json.RawMessage          `json:"tehilimChapters"`
	Mishnayot           json.RawMessage          `json:"mishnayot"`
	BackgroundMusicPath *string                  `json:"backgroundMusicPath"`
	HeroImageIndex      *int                     `json:"heroImageIndex"`
}

// ParseMemorialInput reads memorial content from a multipart form or, for
// edits without uploads, from a JSON body.
func ParseMemorialInput(r *http.Request, maxMemory int64) (memorials.ContentInput, error) {
	if isMultipart(r) {
		return ParseMemorialForm(r, maxMemory)
	}
	return parseMemorialJSON(r)
}

// ParseMemorialForm maps the memorial form fields and file parts. Absent
// fields stay nil.
func ParseMemorialForm(r *http.Request, maxMemory int64) (memorials.ContentInput, error) {
	var input memorials.ContentInput
	if err := parseMultipart(r, maxMemory); err != nil {
		return input, err
	}
	form := r.MultipartForm

	text := func(key string) *string {
		if vals, ok := form.Value[key]; ok && len(vals) > 0 {
			v := vals[0]
			return &v
		}
		return nil
	}

	input.Name = text("name")
	input.HebrewName = text("hebrewName")
	input.BirthDate = text("birthDate")
	input.DeathDate = text("deathDate")
	input.Biography = text("biography")
	input.HeroSummary = text("heroSummary")
	input.BackgroundMusicPath = text("backgroundMusicPath")

	if raw := text("timeline"); raw != nil {
		timeline, err := memorials.ParseTimeline(*raw)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "timeline must be a JSON array").
				WithDetails(map[string]string{"timeline": "is invalid"})
		}
		input.Timeline = &timeline
	}
	if raw := text("tehilimChapters"); raw != nil {
		list := dbtypes.ParseCSVList(*raw)
		input.TehilimChapters = &list
	}
	if raw := text("mishnayot"); raw != nil {
		list := dbtypes.ParseCSVList(*raw)
		input.Mishnayot = &list
	}
	if raw := text("heroImageIndex"); raw != nil && strings.TrimSpace(*raw) != "" {
		idx, err := strconv.Atoi(strings.TrimSpace(*raw))
		if err != nil || idx < 0 {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "heroImageIndex must be a non-negative integer").
				WithDetails(map[string]string{"heroImageIndex": "is invalid"})
		}
		input.HeroImageIndex = &idx
	}

	input.Files = media.FromFileHeaders(form.File[fieldFiles])
	if headers := form.File[fieldHeaderImage]; len(headers) > 0 && headers[0] != nil {
		header := media.FromFileHeader(headers[0])
		input.Header = &header
	}
	return input, nil
}

// ParseUploadFiles returns the files part of an append-media request.
func ParseUploadFiles(r *http.Request, maxMemory int64) ([]media.File, error) {
	if !isMultipart(r) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "multipart/form-data required")
	}
	if err := parseMultipart(r, maxMemory); err != nil {
		return nil, err
	}
	return media.FromFileHeaders(r.MultipartForm.File[fieldFiles]), nil
}

func parseMemorialJSON(r *http.Request) (memorials.ContentInput, error) {
	var body memorialJSON
	var input memorials.ContentInput
	if err := DecodeJSONBodyLenient(r, &body); err != nil {
		return input, err
	}

	input.Name = body.Name
	input.HebrewName = body.HebrewName
	input.BirthDate = body.BirthDate
	input.DeathDate = body.DeathDate
	input.Biography = body.Biography
	input.HeroSummary = body.HeroSummary
	input.BackgroundMusicPath = body.BackgroundMusicPath
	input.HeroImageIndex = body.HeroImageIndex
	if body.Timeline != nil {
		timeline := memorials.NormalizeTimeline(*body.Timeline)
		input.Timeline = &timeline
	}

	var err error
	if input.TehilimChapters, err = decodeList("tehilimChapters", body.TehilimChapters); err != nil {
		return input, err
	}
	if input.Mishnayot, err = decodeList("mishnayot", body.Mishnayot); err != nil {
		return input, err
	}
	return input, nil
}

func decodeList(field string, raw json.RawMessage) (*dbtypes.CSVList, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		list := dbtypes.ParseCSVList(joined)
		return &list, nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{field: "must be a list of strings"})
	}
	list := dbtypes.ParseCSVList(strings.Join(items, ","))
	return &list, nil
}

func parseMultipart(r *http.Request, maxMemory int64) error {
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "upload exceeds the size limit")
		}
		if errors.Is(err, multipart.ErrMessageTooLarge) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "upload exceeds the size limit")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
