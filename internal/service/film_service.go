package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/filmhub/filmhub-api/internal/dto"
	"github.com/filmhub/filmhub-api/internal/models"
	appErrors "github.com/filmhub/filmhub-api/pkg/errors"
)

const (
	publicFilmsPath        = "/api/films/public"
	publicFilmsCachePrefix = "films:public:page:"
	watchDateLayout        = "2006-01-02"
)

type filmStore interface {
	Create(ctx context.Context, film *models.Film) error
	GetByID(ctx context.Context, id int64) (*models.Film, error)
	ListPublic(ctx context.Context, limit, offset int) ([]models.Film, error)
	CountPublic(ctx context.Context) (int, error)
	ListPrivateByOwner(ctx context.Context, owner int64) ([]models.Film, error)
	Update(ctx context.Context, film *models.Film) error
	Delete(ctx context.Context, id int64) error
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool)
}

// FilmService manages the film catalogue and its public/private visibility
// rules. The public listing is served through a Redis cache when one is
// configured.
type FilmService struct {
	repo     filmStore
	cache    cacheStore
	logger   *zap.Logger
	validate *validator.Validate
	pageSize int
	cacheTTL time.Duration
	metrics  cacheObserver
}

// FilmServiceOption configures the service.
type FilmServiceOption func(*FilmService)

// WithCacheObserver wires cache hit/miss metrics.
func WithCacheObserver(observer cacheObserver) FilmServiceOption {
	return func(s *FilmService) {
		s.metrics = observer
	}
}

// NewFilmService constructs the service. cache may be nil to disable caching.
func NewFilmService(repo filmStore, cache cacheStore, logger *zap.Logger, pageSize int, cacheTTL time.Duration, opts ...FilmServiceOption) *FilmService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	s := &FilmService{
		repo:     repo,
		cache:    cache,
		logger:   logger,
		validate: validator.New(),
		pageSize: pageSize,
		cacheTTL: cacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create catalogues a new film owned by the caller.
func (s *FilmService) Create(ctx context.Context, ownerID int64, req dto.CreateFilmRequest) (*models.Film, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	watchDate, err := parseWatchDate(req.WatchDate)
	if err != nil {
		return nil, err
	}

	film := &models.Film{
		Title:     req.Title,
		Owner:     ownerID,
		Private:   req.Private,
		WatchDate: watchDate,
		Rating:    req.Rating,
		Favorite:  req.Favorite,
	}
	if err := s.repo.Create(ctx, film); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create film")
	}
	if !film.Private {
		s.invalidatePublicCache(ctx)
	}
	film.ApplyLinks()
	return film, nil
}

// Get returns a film, enforcing visibility: private films are readable only
// by their owner.
func (s *FilmService) Get(ctx context.Context, id, userID int64) (*models.Film, error) {
	film, err := s.getFilm(ctx, id)
	if err != nil {
		return nil, err
	}
	if film.Private && film.Owner != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner may access a private film")
	}
	film.ApplyLinks()
	return film, nil
}

// ListPublic pages through public films, serving from cache when possible.
func (s *FilmService) ListPublic(ctx context.Context, page int) (*dto.FilmPage, error) {
	if page <= 0 {
		page = 1
	}

	cacheKey := fmt.Sprintf("%s%d", publicFilmsCachePrefix, page)
	if s.cache != nil {
		var cached dto.FilmPage
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.recordCacheOperation(true)
			return &cached, nil
		} else if errors.Is(err, appErrors.ErrCacheMiss) {
			s.recordCacheOperation(false)
		} else {
			s.logger.Warn("public films cache read failed", zap.Error(err))
		}
	}

	total, err := s.repo.CountPublic(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count public films")
	}
	totalPages := (total + s.pageSize - 1) / s.pageSize
	if totalPages == 0 {
		return &dto.FilmPage{
			Films: []models.Film{},
			Pagination: models.Pagination{
				CurrentPage: 0,
				PageSize:    s.pageSize,
				TotalItems:  0,
				TotalPages:  0,
			},
		}, nil
	}
	if page > totalPages {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "the page does not exist")
	}

	films, err := s.repo.ListPublic(ctx, s.pageSize, s.pageSize*(page-1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list public films")
	}
	for i := range films {
		films[i].ApplyLinks()
	}

	result := &dto.FilmPage{
		Films: films,
		Pagination: models.Pagination{
			CurrentPage: page,
			PageSize:    s.pageSize,
			TotalItems:  total,
			TotalPages:  totalPages,
		},
	}
	if page < totalPages {
		result.Pagination.Next = fmt.Sprintf("%s?pageNo=%d", publicFilmsPath, page+1)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn("public films cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// ListPrivate returns all of the caller's private films.
func (s *FilmService) ListPrivate(ctx context.Context, ownerID int64) ([]models.Film, error) {
	films, err := s.repo.ListPrivateByOwner(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list private films")
	}
	for i := range films {
		films[i].ApplyLinks()
	}
	return films, nil
}

// Update changes the mutable fields of an owned film. Visibility is fixed at
// creation time.
func (s *FilmService) Update(ctx context.Context, id, userID int64, req dto.UpdateFilmRequest) (*models.Film, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	watchDate, err := parseWatchDate(req.WatchDate)
	if err != nil {
		return nil, err
	}

	film, err := s.getFilm(ctx, id)
	if err != nil {
		return nil, err
	}
	if film.Owner != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner may update a film")
	}

	film.Title = req.Title
	film.WatchDate = watchDate
	film.Rating = req.Rating
	film.Favorite = req.Favorite
	if err := s.repo.Update(ctx, film); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the film does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update film")
	}
	if !film.Private {
		s.invalidatePublicCache(ctx)
	}
	film.ApplyLinks()
	return film, nil
}

// Delete removes an owned film together with its reviews and edit requests.
func (s *FilmService) Delete(ctx context.Context, id, userID int64) error {
	film, err := s.getFilm(ctx, id)
	if err != nil {
		return err
	}
	if film.Owner != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner may delete a film")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "the film does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete film")
	}
	if !film.Private {
		s.invalidatePublicCache(ctx)
	}
	return nil
}

func (s *FilmService) getFilm(ctx context.Context, id int64) (*models.Film, error) {
	film, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the film does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load film")
	}
	return film, nil
}

func (s *FilmService) invalidatePublicCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, publicFilmsCachePrefix+"*"); err != nil {
		s.logger.Warn("public films cache invalidation failed", zap.Error(err))
	}
}

func (s *FilmService) recordCacheOperation(hit bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCacheOperation(hit)
}

func parseWatchDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(watchDateLayout, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "watchDate must use the YYYY-MM-DD format")
	}
	return &parsed, nil
}
