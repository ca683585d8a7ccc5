package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

// Filter narrows a product listing. A nil Available means "available only",
// matching the catalog endpoint's default.
type Filter struct {
	Category  string
	Available *bool
	Search    string
}

// AvailableOnly reports the effective availability flag.
func (f Filter) AvailableOnly() bool {
	return f.Available == nil || *f.Available
}

// Query encodes the filter as catalog endpoint query parameters.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if c := strings.TrimSpace(f.Category); c != "" {
		q.Set("category", c)
	}
	q.Set("available", strconv.FormatBool(f.AvailableOnly()))
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	return q
}

// Key is a stable serialization of the effective filter; two filters with the
// same Key always produce the same request.
func (f Filter) Key() string {
	return f.Query().Encode()
}
