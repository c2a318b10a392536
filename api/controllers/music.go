package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/memorial-backend/api/responses"
	"github.com/angelmondragon/memorial-backend/internal/media"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
)

// MusicLister lists the background music library.
type MusicLister interface {
	ListMusic(ctx context.Context) ([]media.MusicFile, error)
}

// MusicList reads from storage only, so it stays available while the database is not ready.
func MusicList(svc MusicLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks, err := svc.ListMusic(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tracks)
	}
}
