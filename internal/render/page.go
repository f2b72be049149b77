package render

import "github.com/jonathan/balance-validator/internal/types"

// ItemsPerPage is the checklist page size on the results screen.
const ItemsPerPage = 10

// Page is one slice of the checklist in received order.
type Page struct {
	Items      []types.ChecklistItem
	Number     int // 1-based
	TotalPages int
	First      int // 1-based index of the first item shown, 0 when empty
	Last       int
	TotalItems int
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// Paginate returns page n of items, clamped to the valid range.
func Paginate(items []types.ChecklistItem, n, perPage int) Page {
	if perPage <= 0 {
		perPage = ItemsPerPage
	}
	total := len(items)
	pages := max(1, (total+perPage-1)/perPage)
	n = min(max(n, 1), pages)

	start := (n - 1) * perPage
	end := min(start+perPage, total)

	p := Page{
		Items:      items[start:end],
		Number:     n,
		TotalPages: pages,
		Last:       end,
		TotalItems: total,
	}
	if total > 0 {
		p.First = start + 1
	}
	return p
}
