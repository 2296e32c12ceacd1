package models

import "time"

// ExportFormat enumerates supported export artifact formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus tracks the export job lifecycle.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "queued"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusDone       ExportStatus = "done"
	ExportStatusFailed     ExportStatus = "failed"
)

// ExportJob captures an asynchronous review export requested by a film owner.
type ExportJob struct {
	ID           string       `db:"id" json:"id"`
	FilmID       int64        `db:"film_id" json:"filmId"`
	Format       ExportFormat `db:"format" json:"format"`
	Status       ExportStatus `db:"status" json:"status"`
	FilePath     *string      `db:"file_path" json:"-"`
	ErrorMessage *string      `db:"error_message" json:"error,omitempty"`
	CreatedBy    int64        `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	StartedAt    *time.Time   `db:"started_at" json:"startedAt,omitempty"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finishedAt,omitempty"`
}
