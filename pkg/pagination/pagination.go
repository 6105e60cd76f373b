package pagination

import (
	"fmt"
	"strconv"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Params is an offset page request
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Page wraps one page of items with enough information to fetch the next
type Page struct {
	Items   interface{} `json:"items"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

// Parse reads limit and offset query values. Empty values take the
// defaults; limits above MaxLimit are capped.
func Parse(limitStr, offsetStr string) (Params, error) {
	p := Params{Limit: DefaultLimit}

	if limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return Params{}, fmt.Errorf("invalid limit %q", limitStr)
		}
		p.Limit = limit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return Params{}, fmt.Errorf("invalid offset %q", offsetStr)
		}
		p.Offset = offset
	}

	return p, nil
}

// FetchLimit is the row count to request so HasMore can be decided
func (p Params) FetchLimit() int {
	return p.Limit + 1
}

// NewPage trims a fetched slice of n rows to the page size. Callers slice
// their items to the returned length.
func (p Params) NewPage(n int) (int, bool) {
	if n > p.Limit {
		return p.Limit, true
	}
	return n, false
}
