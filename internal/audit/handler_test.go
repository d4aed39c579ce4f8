package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	entries   []*Entry
	err       error
	lastLimit int
}

func (f *fakeLister) List(_ context.Context, limit int) ([]*Entry, error) {
	f.lastLimit = limit
	return f.entries, f.err
}

func serveList(t *testing.T, lister Lister, path string) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	NewHandler(lister).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestList_ReturnsEntries(t *testing.T) {
	lister := &fakeLister{entries: []*Entry{
		{ID: 2, ActorID: "hr-1", Action: "notice.create", EntityKind: "notice", EntityID: "n-1", CreatedAt: time.Now()},
		{ID: 1, ActorID: "hr-1", Action: "incident.create", EntityKind: "incident", EntityID: "i-1", CreatedAt: time.Now()},
	}}

	rec := serveList(t, lister, "/audit")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "notice.create")
	assert.Contains(t, rec.Body.String(), "incident.create")
	assert.Equal(t, defaultListLimit, lister.lastLimit)
}

func TestList_CustomLimit(t *testing.T) {
	lister := &fakeLister{}

	rec := serveList(t, lister, "/audit?limit=5")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, lister.lastLimit)
}

func TestList_LimitOutOfRange(t *testing.T) {
	for _, limit := range []string{"0", "501", "abc"} {
		rec := serveList(t, &fakeLister{}, "/audit?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}
