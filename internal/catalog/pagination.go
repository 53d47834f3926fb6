package catalog

import "fmt"

// Pagination is the page cursor of the loaded workspace. Pages are 1-indexed.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// FirstPage is the pagination of a workspace before its first page resolves.
func FirstPage() Pagination {
	return Pagination{CurrentPage: 1, TotalPages: 1}
}

// Check rejects pages outside [1, TotalPages].
func (p Pagination) Check(page int) error {
	if page < 1 || page > p.TotalPages {
		return fmt.Errorf("%w: page %d not in [1, %d]", ErrPageOutOfRange, page, p.TotalPages)
	}
	return nil
}

func (p Pagination) HasNext() bool { return p.CurrentPage < p.TotalPages }

func (p Pagination) HasPrev() bool { return p.CurrentPage > 1 }
