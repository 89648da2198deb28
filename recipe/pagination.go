package recipe

// PageSize is the number of results requested per page.
const PageSize = 10

// TotalPages returns ceil(total / PageSize), zero when there are no results.
func TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

// Offset returns the remote offset for a 1-based page number.
func Offset(page int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * PageSize
}

// InRange reports whether page is a valid page for total results.
func InRange(page, total int) bool {
	return page >= 1 && page <= TotalPages(total)
}
