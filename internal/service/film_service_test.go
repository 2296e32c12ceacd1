package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/filmhub/filmhub-api/internal/dto"
	"github.com/filmhub/filmhub-api/internal/models"
	appErrors "github.com/filmhub/filmhub-api/pkg/errors"
)

type filmRepoStub struct {
	films  map[int64]*models.Film
	nextID int64
	public []models.Film
}

func newFilmRepoStub() *filmRepoStub {
	return &filmRepoStub{films: make(map[int64]*models.Film), nextID: 1}
}

func (s *filmRepoStub) Create(ctx context.Context, film *models.Film) error {
	film.ID = s.nextID
	s.nextID++
	copy := *film
	s.films[film.ID] = &copy
	return nil
}

func (s *filmRepoStub) GetByID(ctx context.Context, id int64) (*models.Film, error) {
	if film, ok := s.films[id]; ok {
		copy := *film
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *filmRepoStub) ListPublic(ctx context.Context, limit, offset int) ([]models.Film, error) {
	end := offset + limit
	if end > len(s.public) {
		end = len(s.public)
	}
	if offset >= len(s.public) {
		return nil, nil
	}
	return s.public[offset:end], nil
}

func (s *filmRepoStub) CountPublic(ctx context.Context) (int, error) {
	return len(s.public), nil
}

func (s *filmRepoStub) ListPrivateByOwner(ctx context.Context, owner int64) ([]models.Film, error) {
	var result []models.Film
	for _, film := range s.films {
		if film.Private && film.Owner == owner {
			result = append(result, *film)
		}
	}
	return result, nil
}

func (s *filmRepoStub) Update(ctx context.Context, film *models.Film) error {
	if _, ok := s.films[film.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *film
	s.films[film.ID] = &copy
	return nil
}

func (s *filmRepoStub) Delete(ctx context.Context, id int64) error {
	if _, ok := s.films[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.films, id)
	return nil
}

type cacheStub struct {
	entries     map[string][]byte
	invalidated []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: make(map[string][]byte)}
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	return nil
}

func (s *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	s.entries = make(map[string][]byte)
	return nil
}

func TestFilmCreateAppliesVisibilityLink(t *testing.T) {
	repo := newFilmRepoStub()
	svc := NewFilmService(repo, nil, nil, 10, time.Minute)

	film, err := svc.Create(context.Background(), 1, dto.CreateFilmRequest{Title: "Arrival", Private: true})
	require.NoError(t, err)
	require.Equal(t, "/api/films/private/1", film.Self)

	public, err := svc.Create(context.Background(), 1, dto.CreateFilmRequest{Title: "Dune"})
	require.NoError(t, err)
	require.Equal(t, "/api/films/public/2", public.Self)
}

func TestFilmCreateRejectsBadWatchDate(t *testing.T) {
	svc := NewFilmService(newFilmRepoStub(), nil, nil, 10, time.Minute)

	_, err := svc.Create(context.Background(), 1, dto.CreateFilmRequest{Title: "Dune", WatchDate: "03-2024-01"})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestFilmGetEnforcesPrivacy(t *testing.T) {
	repo := newFilmRepoStub()
	repo.films[5] = &models.Film{ID: 5, Title: "Secret", Owner: 1, Private: true}
	svc := NewFilmService(repo, nil, nil, 10, time.Minute)

	_, err := svc.Get(context.Background(), 5, 2)
	requireAppError(t, err, http.StatusForbidden)

	film, err := svc.Get(context.Background(), 5, 1)
	require.NoError(t, err)
	require.Equal(t, "Secret", film.Title)
}

func TestFilmListPublicCachesPages(t *testing.T) {
	repo := newFilmRepoStub()
	for i := 0; i < 15; i++ {
		repo.public = append(repo.public, models.Film{ID: int64(i + 1), Title: "F", Owner: 1})
	}
	cache := newCacheStub()
	svc := NewFilmService(repo, cache, nil, 10, time.Minute)

	page, err := svc.ListPublic(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Films, 10)
	require.Equal(t, 2, page.Pagination.TotalPages)
	require.Equal(t, "/api/films/public?pageNo=2", page.Pagination.Next)
	require.Contains(t, cache.entries, "films:public:page:1")

	// Second read is served from the cache even after the store changes.
	repo.public = nil
	cached, err := svc.ListPublic(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cached.Films, 10)
}

type cacheObserverStub struct {
	hits   int
	misses int
}

func (s *cacheObserverStub) RecordCacheOperation(hit bool) {
	if hit {
		s.hits++
	} else {
		s.misses++
	}
}

func TestFilmListPublicRecordsCacheHitsAndMisses(t *testing.T) {
	repo := newFilmRepoStub()
	repo.public = []models.Film{{ID: 1, Title: "F", Owner: 1}}
	cache := newCacheStub()
	observer := &cacheObserverStub{}
	svc := NewFilmService(repo, cache, nil, 10, time.Minute, WithCacheObserver(observer))

	_, err := svc.ListPublic(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, observer.misses)
	require.Equal(t, 0, observer.hits)

	_, err = svc.ListPublic(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, observer.misses)
	require.Equal(t, 1, observer.hits)
}

func TestFilmListPublicPageBeyondRangeIsNotFound(t *testing.T) {
	repo := newFilmRepoStub()
	repo.public = []models.Film{{ID: 1, Owner: 1}}
	svc := NewFilmService(repo, nil, nil, 10, time.Minute)

	_, err := svc.ListPublic(context.Background(), 2)
	requireAppError(t, err, http.StatusNotFound)
}

func TestFilmMutationsInvalidatePublicCache(t *testing.T) {
	repo := newFilmRepoStub()
	cache := newCacheStub()
	svc := NewFilmService(repo, cache, nil, 10, time.Minute)

	film, err := svc.Create(context.Background(), 1, dto.CreateFilmRequest{Title: "Dune"})
	require.NoError(t, err)
	require.Len(t, cache.invalidated, 1)

	_, err = svc.Update(context.Background(), film.ID, 1, dto.UpdateFilmRequest{Title: "Dune Part Two"})
	require.NoError(t, err)
	require.Len(t, cache.invalidated, 2)

	require.NoError(t, svc.Delete(context.Background(), film.ID, 1))
	require.Len(t, cache.invalidated, 3)
}

func TestFilmUpdateByNonOwnerIsForbidden(t *testing.T) {
	repo := newFilmRepoStub()
	repo.films[5] = &models.Film{ID: 5, Title: "Dune", Owner: 1}
	svc := NewFilmService(repo, nil, nil, 10, time.Minute)

	_, err := svc.Update(context.Background(), 5, 2, dto.UpdateFilmRequest{Title: "Hijacked"})
	requireAppError(t, err, http.StatusForbidden)

	require.Error(t, svc.Delete(context.Background(), 5, 2))
}
