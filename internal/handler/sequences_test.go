package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talentarc-ai/outreach-platform/internal/middleware"
	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/internal/service"
	"github.com/talentarc-ai/outreach-platform/internal/store"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
)

type sequenceTestEnv struct {
	router chi.Router
	store  store.Store
}

func newSequenceTestEnv(t *testing.T) *sequenceTestEnv {
	t.Helper()

	log := &logger.Logger{Logger: zap.NewNop()}
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := NewSequenceHandler(service.NewSequenceService(st, nil, log), log)

	r := chi.NewRouter()
	r.Use(middleware.Auth("test-secret"))
	r.Route("/api/v1/sequences", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Put("/steps/{stepID}", h.UpdateStep)
		})
	})

	return &sequenceTestEnv{router: r, store: st}
}

func (e *sequenceTestEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestSequenceEndpointsCRUD(t *testing.T) {
	env := newSequenceTestEnv(t)

	// Empty list is an empty array, not null.
	rec := env.do(t, http.MethodGet, "/api/v1/sequences", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/sequences", model.CreateSequenceRequest{
		Name:        "Acme Outreach",
		CompanyName: "Acme",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Sequence
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Acme Outreach", created.Name)

	rec = env.do(t, http.MethodGet, "/api/v1/sequences/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/sequences/"+created.ID, map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.Sequence
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "Acme", updated.CompanyName)
}

func TestSequenceEndpointsNotFound(t *testing.T) {
	env := newSequenceTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/sequences/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/sequences/"+uuid.New().String(), map[string]string{"name": "X"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSequenceEndpointsRejectBadIDs(t *testing.T) {
	env := newSequenceTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/sequences/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSequenceStepUpdateEndpoint(t *testing.T) {
	env := newSequenceTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/sequences", model.CreateSequenceRequest{Name: "With step"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var seq model.Sequence
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seq))

	now := time.Now().UTC()
	stepID := uuid.New().String()
	require.NoError(t, env.store.AddStep(context.Background(), &model.Step{
		ID:         stepID,
		SequenceID: seq.ID,
		StepNumber: 1,
		Type:       model.StepTypeEmail,
		Content:    "original",
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	rec = env.do(t, http.MethodPut, "/api/v1/sequences/"+seq.ID+"/steps/"+stepID,
		map[string]any{"content": "revised", "waitTime": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.Sequence
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Len(t, updated.Steps, 1)
	assert.Equal(t, "revised", updated.Steps[0].Content)
	assert.Equal(t, 3, updated.Steps[0].WaitTime)

	// A step ID from another sequence is a 404.
	rec = env.do(t, http.MethodPut, "/api/v1/sequences/"+uuid.New().String()+"/steps/"+stepID,
		map[string]any{"content": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
