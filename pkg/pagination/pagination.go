package pagination

// MinPage is the first page number. Pages are 1-based everywhere.
const MinPage = 1

// MaxPageButtons bounds Pager.Pages regardless of the reported page count.
const MaxPageButtons = 10

// TotalPages returns how many pages of size are needed for count items.
// An empty result still occupies one page.
func TotalPages(count, size int) int {
	if size <= 0 || count <= 0 {
		return MinPage
	}
	return (count + size - 1) / size
}

// Clamp keeps page within [1, totalPages].
func Clamp(page, totalPages int) int {
	if totalPages < MinPage {
		totalPages = MinPage
	}
	if page < MinPage {
		return MinPage
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Pager describes the page controls for the current result.
type Pager struct {
	Page         int
	TotalPages   int
	Pages        []int
	PrevPage     int
	NextPage     int
	PrevDisabled bool
	NextDisabled bool
}

// NewPager builds the controls for page out of totalPages. Prev and next
// clamp at the boundaries and are disabled there. Pages lists at most
// MaxPageButtons numbers, a window around page.
func NewPager(page, totalPages int) Pager {
	if totalPages < MinPage {
		totalPages = MinPage
	}
	page = Clamp(page, totalPages)

	first := page - MaxPageButtons/2
	if first < MinPage {
		first = MinPage
	}
	last := first + MaxPageButtons - 1
	if last > totalPages {
		last = totalPages
		first = max(MinPage, last-MaxPageButtons+1)
	}
	pages := make([]int, 0, last-first+1)
	for n := first; n <= last; n++ {
		pages = append(pages, n)
	}

	return Pager{
		Page:         page,
		TotalPages:   totalPages,
		Pages:        pages,
		PrevPage:     Clamp(page-1, totalPages),
		NextPage:     Clamp(page+1, totalPages),
		PrevDisabled: page <= MinPage,
		NextDisabled: page >= totalPages,
	}
}

// Slice returns the items shown on page when the full collection is held
// client-side.
func Slice[T any](items []T, page, size int) []T {
	if size <= 0 {
		return items
	}
	page = Clamp(page, TotalPages(len(items), size))
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
