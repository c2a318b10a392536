package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/angelmondragon/memorial-backend/pkg/enums"
)

// allowedMimesByExt pairs each accepted extension with the declared content
// types that may accompany it.
var allowedMimesByExt = map[string][]string{
	".jpg":  {"image/jpeg", "image/jpg", "image/pjpeg"},
	".jpeg": {"image/jpeg", "image/jpg", "image/pjpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".mp4":  {"video/mp4"},
	".mov":  {"video/quicktime"},
	".avi":  {"video/x-msvideo", "video/avi", "video/msvideo"},
	".webm": {"video/webm", "audio/webm"},
	".mp3":  {"audio/mpeg", "audio/mp3"},
	".wav":  {"audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave"},
	".m4a":  {"audio/mp4", "audio/x-m4a", "audio/m4a"},
	".ogg":  {"audio/ogg"},
}

// musicExtensions are the files listed by the background music library.
var musicExtensions = map[string]struct{}{
	".mp3": {},
	".wav": {},
	".m4a": {},
	".ogg": {},
	".aac": {},
}

var allowedExtensions = buildAllowedExtensions()

func buildAllowedExtensions() string {
	list := make([]string, 0, len(allowedMimesByExt))
	for ext := range allowedMimesByExt {
		list = append(list, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(list)
	return strings.Join(list, ", ")
}

func normalizeMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	if mediaType == "" {
		return "", fmt.Errorf("mime type missing")
	}
	return strings.ToLower(mediaType), nil
}

// classify checks the extension and declared type together and returns the
// media kind the declared type selects.
func classify(fileName, declared string) (enums.MediaKind, string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(fileName)))
	allowed, ok := allowedMimesByExt[ext]
	if !ok {
		return "", "", fmt.Errorf("extension %q not allowed; use %s", ext, allowedExtensions)
	}
	mediaType, err := normalizeMimeType(declared)
	if err != nil {
		return "", "", err
	}
	if !containsString(allowed, mediaType) {
		return "", "", fmt.Errorf("content type %s does not match extension %s", mediaType, ext)
	}
	return kindForMime(mediaType), ext, nil
}

func kindForMime(mediaType string) enums.MediaKind {
	switch {
	case strings.HasPrefix(mediaType, "video/"):
		return enums.MediaKindVideo
	case strings.HasPrefix(mediaType, "audio/"):
		return enums.MediaKindAudio
	default:
		return enums.MediaKindImage
	}
}

// contentMatches rejects bodies whose sniffed type contradicts the declared
// kind. Unrecognized content is accepted; audio and video share containers.
func contentMatches(kind enums.MediaKind, sniffed *mimetype.MIME) bool {
	if sniffed == nil {
		return true
	}
	for m := sniffed; m != nil; m = m.Parent() {
		value := m.String()
		switch {
		case strings.HasPrefix(value, "image/"):
			return kind == enums.MediaKindImage
		case strings.HasPrefix(value, "video/"), strings.HasPrefix(value, "audio/"):
			return kind != enums.MediaKindImage
		case strings.HasPrefix(value, "text/html"), strings.HasPrefix(value, "application/x-executable"),
			strings.HasPrefix(value, "application/x-elf"), strings.HasPrefix(value, "application/vnd.microsoft.portable-executable"):
			return false
		}
	}
	return true
}

func containsString(list []string, value string) bool {
	for _, candidate := range list {
		if candidate == value {
			return true
		}
	}
	return false
}

func dirForKind(kind enums.MediaKind) string {
	switch kind {
	case enums.MediaKindVideo:
		return "videos"
	case enums.MediaKindAudio:
		return "audio"
	default:
		return "images"
	}
}
