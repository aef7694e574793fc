package store

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/sarathss100/eve-client/pkg/api"
	"github.com/sarathss100/eve-client/pkg/localstore"
	"github.com/sarathss100/eve-client/pkg/utils"
)

// fakeBackend serves canned JSON per path and counts hits, so tests can
// assert which endpoints a store actually called.
type fakeBackend struct {
	mu        sync.Mutex
	responses map[string]string
	statuses  map[string]int
	hits      map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		responses: make(map[string]string),
		statuses:  make(map[string]int),
		hits:      make(map[string]int),
	}
}

func (b *fakeBackend) respond(path, body string) {
	b.mu.Lock()
	b.responses[path] = body
	b.mu.Unlock()
}

func (b *fakeBackend) respondStatus(path string, status int, body string) {
	b.mu.Lock()
	b.responses[path] = body
	b.statuses[path] = status
	b.mu.Unlock()
}

func (b *fakeBackend) hitCount(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.hits[r.URL.Path]++
	body, ok := b.responses[r.URL.Path]
	status := b.statuses[r.URL.Path]
	b.mu.Unlock()

	if !ok {
		http.Error(w, `{"success":false,"message":"not found"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	w.Write([]byte(body))
}

type testEnv struct {
	backend  *fakeBackend
	client   *api.Client
	mirror   *localstore.Store
	validate *utils.Validator
	logger   *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := newFakeBackend()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	mirror, err := localstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { mirror.Close() })

	logger := zap.NewNop()
	return &testEnv{
		backend:  backend,
		client:   api.NewClient(server.URL, logger),
		mirror:   mirror,
		validate: utils.NewValidator(),
		logger:   logger,
	}
}
