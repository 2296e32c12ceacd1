package models

import (
	"fmt"
	"time"
)

// EditRequestStatus captures the lifecycle states of an edit request.
type EditRequestStatus string

const (
	EditRequestPending  EditRequestStatus = "Pending"
	EditRequestApproved EditRequestStatus = "Approved"
	EditRequestRejected EditRequestStatus = "Rejected"
)

// EditRequest is a time-boxed proposal to reopen a completed review for
// editing, subject to film-owner approval. A Pending request whose deadline
// has passed counts as Rejected; the transition is persisted lazily.
type EditRequest struct {
	ID         int64             `db:"id" json:"id"`
	FilmID     int64             `db:"film_id" json:"filmId"`
	ReviewerID int64             `db:"reviewer_id" json:"reviewerId"`
	Deadline   time.Time         `db:"deadline" json:"deadline"`
	Status     EditRequestStatus `db:"status" json:"status"`

	Self string `db:"-" json:"self,omitempty"`
}

// Expired reports whether the deadline has passed at the given instant.
func (e *EditRequest) Expired(now time.Time) bool {
	return e.Deadline.Before(now)
}

// Live reports whether the request is Pending and not expired.
func (e *EditRequest) Live(now time.Time) bool {
	return e.Status == EditRequestPending && !e.Expired(now)
}

// ApplyLinks fills in the hypermedia self link.
func (e *EditRequest) ApplyLinks() {
	e.Self = fmt.Sprintf("/api/films/public/%d/reviews/%d/editRequests/%d", e.FilmID, e.ReviewerID, e.ID)
}
