package dto

import "github.com/filmhub/filmhub-api/internal/models"

// CreateExportRequest asks for an export of a film's reviews.
type CreateExportRequest struct {
	FilmID int64               `json:"filmId" validate:"required,gt=0"`
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse reports job identity and progress to the requester.
type ExportJobResponse struct {
	ID          string              `json:"id"`
	Status      models.ExportStatus `json:"status"`
	DownloadURL string              `json:"downloadUrl,omitempty"`
	Error       string              `json:"error,omitempty"`
}
