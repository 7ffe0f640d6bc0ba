package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/newsdesk/pkg/config"
	"github.com/umputun/newsdesk/pkg/domain"
	"github.com/umputun/newsdesk/server/mocks"
)

var testTime = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func testRegistry() config.Registry {
	return config.Registry{
		Categories: []domain.Category{
			{Key: "qatar", Label: "Qatar & ME"},
			{Key: "business", Label: "Business"},
			{Key: "tech", Label: "Tech & AI"},
		},
		Sources: []domain.Source{
			{Category: "qatar", Name: "Al Jazeera", URL: "https://aljazeera.example.com/all.xml", Broad: true},
			{Category: "business", Name: "BBC Business", URL: "https://bbc.example.com/business.xml"},
			{Category: "tech", Name: "Verge", URL: "https://verge.example.com/rss"},
		},
		Keywords: map[string][]string{"qatar": {"qatar", "doha"}},
	}
}

func testConfig() *mocks.ConfigProviderMock {
	return &mocks.ConfigProviderMock{
		GetServerConfigFunc: func() (string, time.Duration) { return ":8080", 30 * time.Second },
		GetBaseURLFunc:      func() string { return "http://localhost:8080" },
		GetRegistryFunc:     testRegistry,
	}
}

func testSnapshot() domain.Snapshot {
	return domain.Snapshot{
		RunID: "run-1",
		Articles: []domain.Article{
			{ID: "Doha metro expandsqatar", Title: "Doha metro expands", Category: "qatar", Source: "Al Jazeera",
				Published: testTime.Add(-30 * time.Minute), Breaking: true, TimeAgo: "30m ago",
				ExecSummary: "Metro gets a new line.", URL: "https://aljazeera.example.com/metro"},
			{ID: "Markets rallybusiness", Title: "Markets rally", Category: "business", Source: "BBC Business",
				Published: testTime.Add(-3 * time.Hour), TimeAgo: "3h ago",
				ExecSummary: "Stocks are up.", URL: "https://bbc.example.com/markets"},
			{ID: "New phonetech", Title: "New phone", Category: "tech", Source: "Verge",
				Published: testTime.Add(-5 * time.Hour), TimeAgo: "5h ago",
				ExecSummary: "A phone.", URL: domain.NoURL},
		},
		Status: domain.FetchStatus{"Al Jazeera": domain.SourceOK, "BBC Business": domain.SourceOK, "Verge": domain.SourceError},
		Reports: []domain.SourceReport{
			{Name: "Al Jazeera", Category: "qatar", URL: "https://aljazeera.example.com/all.xml", State: domain.SourceOK, Items: 10, Accepted: 1},
			{Name: "BBC Business", Category: "business", URL: "https://bbc.example.com/business.xml", State: domain.SourceOK, Items: 3, Accepted: 1},
			{Name: "Verge", Category: "tech", URL: "https://verge.example.com/rss", State: domain.SourceError, Error: "status 503"},
		},
		Started:  testTime.Add(-2 * time.Second),
		LastSync: testTime,
	}
}

func testScheduler() *mocks.SchedulerMock {
	return &mocks.SchedulerMock{
		SnapshotFunc: testSnapshot,
		RefreshFunc:  func(context.Context) (domain.Snapshot, error) { return testSnapshot(), nil },
	}
}

// testServer makes a server with default mocks, fn can replace any of params
func testServer(t *testing.T, fn func(p *Params)) *Server {
	t.Helper()
	p := Params{
		Config:     testConfig(),
		Scheduler:  testScheduler(),
		Summarizer: &mocks.SummarizerMock{ConfiguredFunc: func() bool { return true }},
		Downloader: &mocks.DownloaderMock{},
		Version:    "test",
	}
	if fn != nil {
		fn(&p)
	}
	return New(p)
}

// do sends request through the router
func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestServer_New(t *testing.T) {
	srv := New(Params{Config: testConfig(), Scheduler: testScheduler(), Version: "1.0.0"})
	require.NotNil(t, srv)
	assert.Equal(t, "1.0.0", srv.Version)
	assert.False(t, srv.Debug)
	assert.NotNil(t, srv.router)
}

func TestServer_Run(t *testing.T) {
	// find free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	cfg := testConfig()
	cfg.GetServerConfigFunc = func() (string, time.Duration) {
		return fmt.Sprintf("127.0.0.1:%d", port), 30 * time.Second
	}
	srv := New(Params{Config: cfg, Scheduler: testScheduler(), Version: "1.0.0"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	// wait for server to start
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "pong"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunBusyPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	cfg := testConfig()
	cfg.GetServerConfigFunc = func() (string, time.Duration) { return listener.Addr().String(), time.Second }
	srv := New(Params{Config: cfg, Scheduler: testScheduler()})

	err = srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server error")
}

func TestServer_AppInfo(t *testing.T) {
	srv := testServer(t, func(p *Params) { p.Version = "1.2.3" })

	w := do(t, srv, httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "newsdesk", w.Header().Get("App-Name"))
	assert.Equal(t, "1.2.3", w.Header().Get("App-Version"))
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := testServer(t, nil)
	w := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/v1/nothing", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenderJSON(t *testing.T) {
	data := map[string]string{"message": "test", "status": "ok"}

	w := httptest.NewRecorder()
	renderJSON(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody), http.StatusCreated, data)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, data, result)
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		wantMsg string
	}{
		{name: "with error", err: errors.New("something failed"), code: http.StatusBadRequest, wantMsg: "something failed"},
		{name: "nil error", err: nil, code: http.StatusInternalServerError, wantMsg: "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			renderError(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody), tt.err, tt.code)

			assert.Equal(t, tt.code, w.Code)
			var result map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, tt.wantMsg, result["error"])
		})
	}
}
