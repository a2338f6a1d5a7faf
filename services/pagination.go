package services

// Pagination is the page metadata returned with every listing.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	From        *int  `json:"from"`
	To          *int  `json:"to"`
}

// PageRequest is a normalized page number and size.
type PageRequest struct {
	Page    int
	PerPage int
}

const maxPerPage = 100

// NewPageRequest clamps page to at least 1 and perPage to 1..maxPerPage,
// using def when perPage is not positive.
func NewPageRequest(page, perPage, def int) PageRequest {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = def
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return PageRequest{Page: page, PerPage: perPage}
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Result builds the metadata for a page holding count of total rows.
func (p PageRequest) Result(total int64, count int) Pagination {
	last := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if last < 1 {
		last = 1
	}
	out := Pagination{
		CurrentPage: p.Page,
		LastPage:    last,
		PerPage:     p.PerPage,
		Total:       total,
	}
	if count > 0 {
		from := p.Offset() + 1
		to := p.Offset() + count
		out.From, out.To = &from, &to
	}
	return out
}
