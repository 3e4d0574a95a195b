package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/autoreviewbot/internal/core"
	"github.com/sevigo/autoreviewbot/internal/storage"
)

type fakeStore struct {
	record *storage.RunRecord
	err    error

	gotRepo string
	gotPR   int
}

func (s *fakeStore) SaveRun(context.Context, *core.ReviewEvent, *core.RunResult, []core.Violation) error {
	return nil
}

func (s *fakeStore) LatestRunForPR(_ context.Context, repoFullName string, prNumber int) (*storage.RunRecord, error) {
	s.gotRepo = repoFullName
	s.gotPR = prNumber
	return s.record, s.err
}

func runsRouter(store storage.Store) *chi.Mux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Get("/runs/{owner}/{repo}/{number}", NewRunsHandler(store, logger).Latest)
	return r
}

func TestRunsHandlerLatest(t *testing.T) {
	store := &fakeStore{record: &storage.RunRecord{
		ID:             "run-1",
		RepoFullName:   "acme/widgets",
		PRNumber:       42,
		HeadSHA:        "abc123",
		StartedAt:      time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		ElapsedMs:      1500,
		ViolationCount: 2,
		Conclusion:     "failure",
	}}

	rec := httptest.NewRecorder()
	runsRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/acme/widgets/42", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme/widgets", store.gotRepo)
	assert.Equal(t, 42, store.gotPR)

	var got storage.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, "failure", got.Conclusion)
	assert.Equal(t, 2, got.ViolationCount)
}

func TestRunsHandlerLatestNotFound(t *testing.T) {
	store := &fakeStore{err: errors.New("no rows")}

	rec := httptest.NewRecorder()
	runsRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/acme/widgets/7", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunsHandlerLatestNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	runsRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/acme/widgets/7", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRunsHandlerLatestBadNumber(t *testing.T) {
	store := &fakeStore{}

	for _, number := range []string{"zero", "0", "-3"} {
		rec := httptest.NewRecorder()
		runsRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/acme/widgets/"+number, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "number %q must be rejected", number)
	}
}
