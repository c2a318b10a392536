package validators

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
)

// ParseUUIDParam parses a path identifier. Malformed ids are reported as not
// found since no record can carry them.
func ParseUUIDParam(raw, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return id, nil
}
