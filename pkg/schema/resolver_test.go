package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nuxeo/spreadsheet-schemas/pkg/rest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer serves a schema catalogue and the fields of its schemas.
type fakeServer struct {
	t         *testing.T
	catalogue []Entry
	fields    map[string]Fields

	// failing schema names answer with a 500
	failing map[string]bool
	// catalogueStatus, when set, is returned by the listing
	catalogueStatus atomic.Int32
	// onFields, when set, replaces the fields handler
	onFields func(w http.ResponseWriter, name string, call int32)
	// listing, when set, blocks the listing until closed
	listing chan struct{}

	mu    sync.Mutex
	calls map[string]int32
}

func newFakeServer(t *testing.T) *fakeServer {
	return &fakeServer{
		t: t,
		catalogue: []Entry{
			{Name: "dublincore", Prefix: "dc"},
			{Name: "file"},
			{Name: "common"},
		},
		fields: map[string]Fields{
			"dublincore": {"title": "string", "subjects": "string[]"},
			"file":       {"content": map[string]interface{}{"type": "blob"}},
			"common":     {"icon": "string"},
		},
		failing: map[string]bool{},
		calls:   map[string]int32{},
	}
}

func (s *fakeServer) callCount(name string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(s.t, http.MethodGet, r.Method)
	assert.Empty(s.t, r.Header.Values(rest.RepositoryHeader))
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	if path == CataloguePath {
		s.mu.Lock()
		s.calls[""]++
		s.mu.Unlock()
		if s.listing != nil {
			<-s.listing
		}
		if status := s.catalogueStatus.Load(); status != 0 {
			w.WriteHeader(int(status))
			return
		}
		_ = json.NewEncoder(w).Encode(s.catalogue)
		return
	}

	name := strings.TrimPrefix(path, CataloguePath+"/")
	assert.Equal(s.t, "fields", r.URL.Query().Get("fetch.schema"))
	s.mu.Lock()
	s.calls[name]++
	call := s.calls[name]
	s.mu.Unlock()

	if s.onFields != nil {
		s.onFields(w, name, call)
		return
	}
	if s.failing[name] {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	for _, e := range s.catalogue {
		if e.Name == name {
			_ = json.NewEncoder(w).Encode(FieldsResponse{Entry: e, Fields: s.fields[name]})
			return
		}
	}
	http.NotFound(w, r)
}

func newTestResolver(t *testing.T, s *fakeServer, opts ...ResolverOpt) *Resolver {
	t.Helper()
	server := httptest.NewServer(s)
	t.Cleanup(server.Close)
	client, err := rest.NewClient(rest.ClientConfig{BaseURL: server.URL + "/api/v1"})
	require.NoError(t, err)
	return NewResolver(client, opts...)
}

func TestResolverFetch(t *testing.T) {
	s := newFakeServer(t)
	r := newTestResolver(t, s)
	assert.Equal(t, StatusIdle, r.Status())

	result, err := r.Fetch(context.Background(), []string{"dc", "file"})
	require.NoError(t, err)

	assert.True(t, result.Complete())
	assert.Equal(t, StatusDone, r.Status())
	assert.Equal(t, SchemaMap{
		"dc": {
			Name:   "dublincore",
			Fields: Fields{"title": "string", "subjects": "string[]"},
		},
		"file": {
			Name:   "file",
			Fields: Fields{"content": map[string]interface{}{"type": "blob"}},
		},
	}, result.Schemas)
	assert.Equal(t, int32(1), s.callCount(""))
	assert.Equal(t, int32(1), s.callCount("dublincore"))
	assert.Equal(t, int32(1), s.callCount("file"))
	assert.Equal(t, int32(0), s.callCount("common"))
}

func TestResolverFetchUnknownSchema(t *testing.T) {
	s := newFakeServer(t)
	r := newTestResolver(t, s)

	result, err := r.Fetch(context.Background(), []string{"dc", "nonexistent"})
	require.NoError(t, err)

	assert.Contains(t, result.Schemas, "dc")
	assert.NotContains(t, result.Schemas, "nonexistent")
	assert.Len(t, result.Schemas, 1)
	assert.Empty(t, result.Failures)
}

func TestResolverFetchWildcard(t *testing.T) {
	s := newFakeServer(t)
	r := newTestResolver(t, s)

	result, err := r.Fetch(context.Background(), []string{Wildcard})
	require.NoError(t, err)
	assert.Len(t, result.Schemas, 3)
	for key, d := range result.Schemas {
		assert.NotNil(t, d.Fields, key)
	}
}

func TestResolverFetchFieldFailure(t *testing.T) {
	var logs bytes.Buffer
	s := newFakeServer(t)
	s.failing["file"] = true
	r := newTestResolver(t, s, WithLogger(zerolog.New(&logs)))

	result, err := r.Fetch(context.Background(), []string{"dc", "file"})
	require.NoError(t, err)

	require.Contains(t, result.Schemas, "dc")
	require.Contains(t, result.Schemas, "file")
	assert.NotNil(t, result.Schemas["dc"].Fields)
	assert.Nil(t, result.Schemas["file"].Fields)
	assert.Equal(t, "file", result.Schemas["file"].Name)

	assert.False(t, result.Complete())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "file", result.Failures[0].Key)
	assert.Equal(t, "file", result.Failures[0].Name)
	var apiErr *rest.APIError
	require.ErrorAs(t, result.Failures[0], &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Code())

	assert.Contains(t, logs.String(), "failed to fetch schema fields")
	assert.Contains(t, logs.String(), `"schema":"file"`)
	assert.Contains(t, logs.String(), `"fetch_id"`)
}

func TestResolverFetchCatalogueFailure(t *testing.T) {
	s := newFakeServer(t)
	s.catalogueStatus.Store(http.StatusServiceUnavailable)
	r := newTestResolver(t, s)

	result, err := r.Fetch(context.Background(), []string{"dc"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, StatusFailed, r.Status())

	var catErr *CatalogueFetchError
	require.ErrorAs(t, err, &catErr)
	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Code())
	assert.Equal(t, int32(0), s.callCount("dublincore"))

	// a failed resolver can fetch again
	s.catalogueStatus.Store(0)
	_, err = r.Fetch(context.Background(), []string{"dc"})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, r.Status())
}

func TestResolverFetchDuplicateKeys(t *testing.T) {
	s := newFakeServer(t)
	s.onFields = func(w http.ResponseWriter, name string, call int32) {
		assert.Equal(t, "dublincore", name)
		// the first request to arrive is the last one to complete
		if call == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		_ = json.NewEncoder(w).Encode(FieldsResponse{
			Entry:  Entry{Name: "dublincore", Prefix: "dc"},
			Fields: Fields{"call": float64(call)},
		})
	}
	r := newTestResolver(t, s)

	result, err := r.Fetch(context.Background(), []string{"dc", "dc"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), s.callCount("dublincore"))
	require.Contains(t, result.Schemas, "dc")
	assert.Equal(t, Fields{"call": float64(1)}, result.Schemas["dc"].Fields)
}

func TestResolverFetchMismatchedResponseKey(t *testing.T) {
	var logs bytes.Buffer
	s := newFakeServer(t)
	s.onFields = func(w http.ResponseWriter, name string, _ int32) {
		_ = json.NewEncoder(w).Encode(FieldsResponse{
			Entry:  Entry{Name: name, Prefix: "other"},
			Fields: Fields{"x": "string"},
		})
	}
	r := newTestResolver(t, s, WithLogger(zerolog.New(&logs)))

	result, err := r.Fetch(context.Background(), []string{"file"})
	require.NoError(t, err)

	assert.Equal(t, Fields{"x": "string"}, result.Schemas["file"].Fields)
	assert.NotContains(t, result.Schemas, "other")
	assert.Contains(t, logs.String(), "fields response reports a different schema key")
}

func TestResolverFetchEmptyFields(t *testing.T) {
	s := newFakeServer(t)
	s.fields["common"] = nil
	r := newTestResolver(t, s)

	result, err := r.Fetch(context.Background(), []string{"common"})
	require.NoError(t, err)
	assert.NotNil(t, result.Schemas["common"].Fields)
	assert.Empty(t, result.Schemas["common"].Fields)
}

func TestResolverFetchIdempotent(t *testing.T) {
	s := newFakeServer(t)
	r := newTestResolver(t, s, WithConcurrency(1))

	requested := []string{"dc", "file", "common"}
	first, err := r.Fetch(context.Background(), requested)
	require.NoError(t, err)
	second, err := r.Fetch(context.Background(), requested)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Schemas, second.Schemas); diff != "" {
		t.Errorf("unexpected difference between fetches (-first +second):\n%s", diff)
	}
	// every fetch builds a new map
	second.Schemas["dc"].Fields["title"] = "changed"
	assert.Equal(t, "string", first.Schemas["dc"].Fields["title"])
}

func TestResolverFetchInProgress(t *testing.T) {
	s := newFakeServer(t)
	s.listing = make(chan struct{})
	r := newTestResolver(t, s)

	done := make(chan error, 1)
	go func() {
		_, err := r.Fetch(context.Background(), []string{"dc"})
		done <- err
	}()

	require.Eventually(t, func() bool {
		return s.callCount("") == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, StatusListing, r.Status())

	_, err := r.Fetch(context.Background(), []string{"dc"})
	assert.True(t, errors.Is(err, ErrFetchInProgress))

	close(s.listing)
	require.NoError(t, <-done)
	assert.Equal(t, StatusDone, r.Status())
}

func TestResolverFetchCanceled(t *testing.T) {
	s := newFakeServer(t)
	r := newTestResolver(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Fetch(ctx, []string{"dc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "listing", StatusListing.String())
	assert.Equal(t, "resolving-fields", StatusResolvingFields.String())
	assert.Equal(t, "done", StatusDone.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestResolverFetchDuplicateKeysOneFailure(t *testing.T) {
	s := newFakeServer(t)
	s.onFields = func(w http.ResponseWriter, name string, call int32) {
		if call == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(FieldsResponse{
			Entry:  Entry{Name: name, Prefix: "dc"},
			Fields: Fields{"title": "string"},
		})
	}
	r := newTestResolver(t, s)

	result, err := r.Fetch(context.Background(), []string{"dc", "dc"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), s.callCount("dublincore"))
	assert.Equal(t, Fields{"title": "string"}, result.Schemas["dc"].Fields)
	assert.Empty(t, result.Failures)
	assert.True(t, result.Complete())
}

func TestJoin(t *testing.T) {
	failed := fieldOutcome{
		fieldTask: fieldTask{key: "dc", name: "dublincore"},
		err:       errors.New("boom"),
	}
	succeeded := fieldOutcome{
		fieldTask: fieldTask{key: "dc", name: "dublincore"},
		resp: &FieldsResponse{
			Entry:  Entry{Name: "dublincore", Prefix: "dc"},
			Fields: Fields{"title": "string"},
		},
	}
	tests := []struct {
		name         string
		outcomes     []fieldOutcome
		wantFields   Fields
		wantFailures int
	}{
		{
			name:       "failure then success",
			outcomes:   []fieldOutcome{failed, succeeded},
			wantFields: Fields{"title": "string"},
		},
		{
			name:       "success then failure",
			outcomes:   []fieldOutcome{succeeded, failed},
			wantFields: Fields{"title": "string"},
		},
		{
			name:         "only failures",
			outcomes:     []fieldOutcome{failed, failed},
			wantFailures: 2,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			schemas := SchemaMap{"dc": {Name: "dublincore"}}
			failures := join(zerolog.Nop(), schemas, tc.outcomes)
			assert.Equal(t, tc.wantFields, schemas["dc"].Fields)
			assert.Len(t, failures, tc.wantFailures)
		})
	}
}
