package services

const (
	defaultPerPage = 10
	minPerPage     = 5
	maxPerPage     = 200
)

// PageMeta describes one page of a paginated result set.
type PageMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// clampPagination normalizes page and perPage: page is at least 1, perPage
// defaults to 10 and is clamped into [5, 200] to bound query cost.
func clampPagination(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage == 0 {
		perPage = defaultPerPage
	}
	if perPage < minPerPage {
		perPage = minPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func pageMeta(page, perPage int, total int64) PageMeta {
	totalPages := total / int64(perPage)
	if total%int64(perPage) != 0 {
		totalPages++
	}
	return PageMeta{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}
