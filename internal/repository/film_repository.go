package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/filmhub/filmhub-api/internal/models"
)

// FilmRepository provides database access to the films table.
type FilmRepository struct {
	db *sqlx.DB
}

// NewFilmRepository constructs the repository.
func NewFilmRepository(db *sqlx.DB) *FilmRepository {
	return &FilmRepository{db: db}
}

const filmColumns = `id, title, owner, private, watch_date, rating, favorite, created_at, updated_at`

// Create inserts a new film and fills in the assigned id.
func (r *FilmRepository) Create(ctx context.Context, film *models.Film) error {
	const query = `INSERT INTO films (title, owner, private, watch_date, rating, favorite)
	VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		film.Title, film.Owner, film.Private, film.WatchDate, film.Rating, film.Favorite,
	).Scan(&film.ID); err != nil {
		return fmt.Errorf("create film: %w", err)
	}
	return nil
}

// GetByID fetches a film by identifier.
func (r *FilmRepository) GetByID(ctx context.Context, id int64) (*models.Film, error) {
	const query = `SELECT ` + filmColumns + ` FROM films WHERE id = $1`
	var film models.Film
	if err := r.db.GetContext(ctx, &film, query, id); err != nil {
		return nil, err
	}
	return &film, nil
}

// ListPublic pages through public films by insertion order.
func (r *FilmRepository) ListPublic(ctx context.Context, limit, offset int) ([]models.Film, error) {
	const query = `SELECT ` + filmColumns + ` FROM films WHERE private = FALSE
	ORDER BY id ASC LIMIT $1 OFFSET $2`
	var films []models.Film
	if err := r.db.SelectContext(ctx, &films, query, limit, offset); err != nil {
		return nil, fmt.Errorf("list public films: %w", err)
	}
	return films, nil
}

// CountPublic returns the number of public films.
func (r *FilmRepository) CountPublic(ctx context.Context) (int, error) {
	const query = `SELECT count(*) FROM films WHERE private = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count public films: %w", err)
	}
	return count, nil
}

// ListPrivateByOwner returns the owner's private films.
func (r *FilmRepository) ListPrivateByOwner(ctx context.Context, owner int64) ([]models.Film, error) {
	const query = `SELECT ` + filmColumns + ` FROM films WHERE owner = $1 AND private = TRUE ORDER BY id ASC`
	var films []models.Film
	if err := r.db.SelectContext(ctx, &films, query, owner); err != nil {
		return nil, fmt.Errorf("list private films: %w", err)
	}
	return films, nil
}

// Update persists mutable film fields.
func (r *FilmRepository) Update(ctx context.Context, film *models.Film) error {
	const query = `UPDATE films SET title = $2, watch_date = $3, rating = $4, favorite = $5, updated_at = now()
	WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, film.ID, film.Title, film.WatchDate, film.Rating, film.Favorite)
	if err != nil {
		return fmt.Errorf("update film: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a film. Reviews and edit requests cascade.
func (r *FilmRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM films WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete film: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
