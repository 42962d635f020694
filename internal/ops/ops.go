package ops

import (
	"strings"

	"github.com/hpungsan/chattoc/internal/errors"
	"github.com/hpungsan/chattoc/internal/section"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// DefaultKeep is how many snapshots per page survive a store.
const DefaultKeep = 20

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Address identifies a snapshot either by ID or by page (its latest snapshot).
type Address struct {
	ByID bool
	ID   string
	Page string // normalized
}

// ValidateAddress validates addressing parameters and returns a normalized Address.
// Exactly one of id or page must be given.
func ValidateAddress(id, page string) (*Address, error) {
	id = strings.TrimSpace(id)
	hasID := id != ""
	hasPage := strings.TrimSpace(page) != ""

	if hasID && hasPage {
		return nil, errors.NewInvalidRequest("specify either id or page, not both")
	}
	if !hasID && !hasPage {
		return nil, errors.NewInvalidRequest("must specify either id or page")
	}
	if hasID {
		return &Address{ByID: true, ID: id}, nil
	}
	return &Address{Page: section.Normalize(page)}, nil
}

// bounds applies limit defaults and bounds and clamps offset at zero.
func bounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, max(offset, 0)
}
