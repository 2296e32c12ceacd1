package models

import (
	"fmt"
	"time"
)

// Film represents a film catalogued by a user. Private films are visible only
// to their owner; public films accept review assignments.
type Film struct {
	ID        int64      `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Owner     int64      `db:"owner" json:"owner"`
	Private   bool       `db:"private" json:"private"`
	WatchDate *time.Time `db:"watch_date" json:"watchDate,omitempty"`
	Rating    *int       `db:"rating" json:"rating,omitempty"`
	Favorite  bool       `db:"favorite" json:"favorite"`
	CreatedAt time.Time  `db:"created_at" json:"-"`
	UpdatedAt time.Time  `db:"updated_at" json:"-"`

	Self string `db:"-" json:"self,omitempty"`
}

// ApplyLinks fills in the hypermedia self link.
func (f *Film) ApplyLinks() {
	visibility := "public"
	if f.Private {
		visibility = "private"
	}
	f.Self = fmt.Sprintf("/api/films/%s/%d", visibility, f.ID)
}
