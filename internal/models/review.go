package models

import (
	"fmt"
	"time"
)

// Review is keyed by (film, reviewer). A review starts incomplete when the
// film owner assigns it; the reviewer fills it in and marks it completed.
// Only completed reviews are eligible for edit requests.
type Review struct {
	FilmID     int64      `db:"film_id" json:"filmId"`
	ReviewerID int64      `db:"reviewer_id" json:"reviewerId"`
	Completed  bool       `db:"completed" json:"completed"`
	ReviewDate *time.Time `db:"review_date" json:"reviewDate,omitempty"`
	Rating     *int       `db:"rating" json:"rating,omitempty"`
	Review     *string    `db:"review" json:"review,omitempty"`

	Self         string `db:"-" json:"self,omitempty"`
	EditRequests string `db:"-" json:"editRequests,omitempty"`
}

// ApplyLinks fills in hypermedia links. The edit-request collection link is
// only advertised to the reviewer and the film owner.
func (r *Review) ApplyLinks(userID, ownerID int64) {
	r.Self = fmt.Sprintf("/api/films/public/%d/reviews/%d", r.FilmID, r.ReviewerID)
	if userID == r.ReviewerID || userID == ownerID {
		r.EditRequests = r.Self + "/editRequests"
	}
}
