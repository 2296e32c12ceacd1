package dto

import (
	"github.com/filmhub/filmhub-api/internal/models"
)

// IssueEditRequestRequest carries the proposed deadline. The handler validates
// syntax and that the deadline is in the future before the service runs.
type IssueEditRequestRequest struct {
	Deadline string `json:"deadline"`
}

// DecideEditRequestRequest captures the owner's approve/reject decision.
// Accepted is a pointer so a missing field can be told apart from false.
type DecideEditRequestRequest struct {
	Accepted *bool `json:"accepted"`
}

// EditRequestPage is a single page of edit requests with paging metadata.
type EditRequestPage struct {
	EditRequests []models.EditRequest `json:"editRequests"`
	Pagination   models.Pagination    `json:"-"`
}
