package models

// Pagination carries paging metadata returned in list responses. Next is only
// present when a further page exists.
type Pagination struct {
	CurrentPage int    `json:"currentPage"`
	PageSize    int    `json:"pageSize"`
	TotalItems  int    `json:"totalItems"`
	TotalPages  int    `json:"totalPages"`
	Next        string `json:"next,omitempty"`
}
