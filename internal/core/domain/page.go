package domain

import "fmt"

// Page is an offset/limit window over root aggregates. The zero value,
// Unpaged, means no pagination was requested.
type Page struct {
	Offset int
	Limit  int
	set    bool
}

var Unpaged = Page{}

func NewPage(offset, limit int) (Page, error) {
	if offset < 0 || limit <= 0 {
		return Page{}, fmt.Errorf("%w: offset=%d limit=%d", ErrInvalidPagination, offset, limit)
	}
	return Page{Offset: offset, Limit: limit, set: true}, nil
}

// NewOffsetPage skips offset roots with no explicit limit. The limit is
// MaxResults.
func NewOffsetPage(offset int) (Page, error) {
	if offset < 0 {
		return Page{}, fmt.Errorf("%w: offset=%d", ErrInvalidPagination, offset)
	}
	return Page{Offset: offset, Limit: MaxResults, set: true}, nil
}

func (p Page) IsSet() bool {
	return p.set
}

// Window returns the offset and limit to send to the store, with the limit
// capped at MaxResults.
func (p Page) Window() (offset, limit int) {
	if !p.set || p.Limit > MaxResults {
		return p.Offset, MaxResults
	}
	return p.Offset, p.Limit
}
