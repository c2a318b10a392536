package pagination

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the page size NormalizeLimit falls back to.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta describes a served page.
type Meta struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Parse reads raw page/limit query values. ok is false unless limit is
// present; callers then serve the full unpaginated set. page is validated
// whenever it is sent.
func Parse(rawPage, rawLimit string) (params Params, ok bool, err error) {
	rawPage = strings.TrimSpace(rawPage)
	rawLimit = strings.TrimSpace(rawLimit)

	params = Params{Page: 1}
	if rawPage != "" {
		page, convErr := strconv.Atoi(rawPage)
		if convErr != nil || page < 1 {
			return Params{}, false, fmt.Errorf("page must be an integer >= 1")
		}
		params.Page = page
	}
	if rawLimit == "" {
		return Params{}, false, nil
	}
	limit, convErr := strconv.Atoi(rawLimit)
	if convErr != nil || limit < 1 || limit > MaxLimit {
		return Params{}, false, fmt.Errorf("limit must be an integer between 1 and %d", MaxLimit)
	}
	params.Limit = limit
	return params, true, nil
}

// Offset returns the number of rows to skip for the page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * NormalizeLimit(p.Limit)
}

// NewMeta computes page flags from the total row count.
func NewMeta(p Params, total int64) Meta {
	limit := NormalizeLimit(p.Limit)
	page := p.Page
	if page < 1 {
		page = 1
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Meta{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: int64(page*limit) < total,
		HasPrevPage: page > 1,
	}
}
