package interactions

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/memorial-backend/pkg/db/models"
)

const (
	maxCondolenceNameLen    = 100
	maxCondolenceMessageLen = 2000
	maxLitByLen             = 100
	maxVisitorIDLen         = 128

	// DefaultLitBy is shown for candles lit without a name.
	DefaultLitBy = "אנונימי"
)

// CondolenceDTO is the public shape of a condolence message.
type CondolenceDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
}

// CandleDTO is one lit candle. The visitor key is never returned.
type CandleDTO struct {
	ID        uuid.UUID `json:"id"`
	LitBy     string    `json:"litBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// CandlesResult is returned by both candle endpoints.
type CandlesResult struct {
	Candles      []CandleDTO `json:"candles"`
	CandleCount  int         `json:"candleCount"`
	HasLitCandle bool        `json:"hasLitCandle"`
}

func condolenceFromModel(c *models.Condolence) CondolenceDTO {
	return CondolenceDTO{
		ID:        c.ID,
		Name:      c.Name,
		Message:   c.Message,
		Approved:  c.Approved,
		CreatedAt: c.CreatedAt,
	}
}

func candlesFromModels(rows []models.Candle) []CandleDTO {
	out := make([]CandleDTO, 0, len(rows))
	for _, c := range rows {
		out = append(out, CandleDTO{ID: c.ID, LitBy: c.LitBy, CreatedAt: c.CreatedAt})
	}
	return out
}
