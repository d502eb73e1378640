// Package page implements the pagination envelope returned by every
// enumeration and search operation.
package page

// Page is an ordered slice of T plus derived pagination fields:
// TotalPages = ceil(total/size) when total>0 else 0, HasNext/HasPrevious
// driven off PageNumber vs TotalPages, and Next/Previous page numbers set
// only when the corresponding Has* flag holds.
type Page[T any] struct {
	Items        []T
	TotalItems   int64
	PageNumber   int
	PageSize     int
	TotalPages   int64
	HasNext      bool
	HasPrevious  bool
	NextPage     *int
	PreviousPage *int
}

// New builds a Page, computing every derived field from items, totalItems,
// pageNumber, and pageSize. Every engine and collection.SearchByHash
// constructs its pages through here; the engines also compute the total
// page count themselves, for their PageOutOfRange check.
func New[T any](items []T, totalItems int64, pageNumber, pageSize int) Page[T] {
	var totalPages int64
	if totalItems > 0 && pageSize > 0 {
		totalPages = (totalItems + int64(pageSize) - 1) / int64(pageSize)
	}

	p := Page[T]{
		Items:      items,
		TotalItems: totalItems,
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}

	p.HasNext = int64(pageNumber) < totalPages
	p.HasPrevious = pageNumber > 1

	if p.HasNext {
		n := pageNumber + 1
		p.NextPage = &n
	}
	if p.HasPrevious {
		n := pageNumber - 1
		p.PreviousPage = &n
	}

	return p
}
