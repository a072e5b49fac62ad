// Package pagination splits an ordered collection into fixed-size numbered pages.
package pagination

import (
	"strconv"
	"strings"
)

// Paginator describes one resolved page of a collection of Count items.
// Number is always a valid page: numeric requests out of range clamp to the
// last page and unparseable requests fall back to the first.
type Paginator struct {
	Number   int
	NumPages int
	Count    int64
	PerPage  int
}

// New resolves the raw page query value against a collection of total items.
func New(total int64, perPage int, raw string) Paginator {
	if perPage <= 0 {
		perPage = 1
	}
	if total < 0 {
		total = 0
	}

	numPages := int((total + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}

	number, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case err != nil:
		number = 1
	case number < 1, number > numPages:
		number = numPages
	}

	return Paginator{
		Number:   number,
		NumPages: numPages,
		Count:    total,
		PerPage:  perPage,
	}
}

// Offset is the index of the first item on the page.
func (p Paginator) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Limit is the maximum number of items on the page.
func (p Paginator) Limit() int {
	return p.PerPage
}

func (p Paginator) HasNext() bool {
	return p.Number < p.NumPages
}

func (p Paginator) HasPrevious() bool {
	return p.Number > 1
}

func (p Paginator) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}

func (p Paginator) NextNumber() int {
	if !p.HasNext() {
		return p.Number
	}
	return p.Number + 1
}

func (p Paginator) PreviousNumber() int {
	if !p.HasPrevious() {
		return p.Number
	}
	return p.Number - 1
}

// PageRange lists every page number, for rendering numbered links.
func (p Paginator) PageRange() []int {
	pages := make([]int, p.NumPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// Page is a resolved paginator plus the items that fall on it.
type Page[T any] struct {
	Paginator
	Items []T
}

// NewPage attaches items fetched with p.Offset() and p.Limit() to p.
func NewPage[T any](p Paginator, items []T) Page[T] {
	return Page[T]{Paginator: p, Items: items}
}
