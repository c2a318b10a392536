package media

import (
	"context"
	"path"
	"strings"

	"github.com/angelmondragon/memorial-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
)

// MusicFile is one track in the background music library.
type MusicFile struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	DisplayName string `json:"displayName"`
}

// ListMusic returns the audio files available as background music.
func (s *service) ListMusic(ctx context.Context) ([]MusicFile, error) {
	objects, err := s.store.List(ctx, dirForKind(enums.MediaKindAudio))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Error reading music files")
	}
	out := make([]MusicFile, 0, len(objects))
	for _, obj := range objects {
		ext := strings.ToLower(path.Ext(obj.Name))
		if _, ok := musicExtensions[ext]; !ok {
			continue
		}
		out = append(out, MusicFile{
			Name:        obj.Name,
			Path:        obj.Path,
			DisplayName: strings.TrimSuffix(obj.Name, path.Ext(obj.Name)),
		})
	}
	return out, nil
}
