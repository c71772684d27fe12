package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"siteledger/internal/attach"
	"siteledger/internal/blob"
	"siteledger/internal/blog"
	"siteledger/internal/config"
	"siteledger/internal/currency"
	"siteledger/internal/db"
	"siteledger/internal/domain"
	"siteledger/internal/migrate"
	"siteledger/internal/receipt"
	"siteledger/internal/store"
	"siteledger/internal/workspace"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	st, err := store.Open(dir, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	blobs := blob.Store{DB: conn}
	eng := workspace.New(st, blobs, nil)
	handler, err := New(Config{
		Engine:   eng,
		Blog:     blog.New(st),
		Receipts: receipt.New("", "", "", eng, blobs, nil),
		Resolver: attach.Resolver{Blobs: blobs},
		Blobs:    blobs,
		Store:    st,
		Currency: currency.Formatter{Base: cfg.Currency.Base, Rates: cfg.Currency.Rates},
		Projects: cfg.Venture.Projects,
		BasePath: "/v0",
		Auth: AuthConfig{
			JWTSecret:           "test-secret",
			AllowRoleHeader:     true,
			AllowBootstrapLogin: true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

var adminHdr = map[string]string{"X-Portal-Role": "admin"}
var investorHdr = map[string]string{"X-Portal-Role": "investor"}

func TestHealthNoAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, data)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/projects/villa-alpha/tasks", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code != "unauthorized" {
		t.Fatalf("error envelope mismatch: %s", data)
	}
}

func TestTaskCRUDAndRoleGate(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0/projects/villa-alpha"

	res, data := doJSON(t, client, http.MethodPost, base+"/tasks", map[string]any{"name": "Pour slab"}, adminHdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create status %d: %s", res.StatusCode, data)
	}
	var created domain.Task
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if created.ID == "" || created.Status != domain.StatusPending {
		t.Fatalf("defaults missing: %+v", created)
	}

	// Investors can read but not write.
	res, data = doJSON(t, client, http.MethodGet, base+"/tasks", nil, investorHdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("investor list status %d: %s", res.StatusCode, data)
	}
	var listed []domain.Task
	if err := json.Unmarshal(data, &listed); err != nil || len(listed) != 1 {
		t.Fatalf("list mismatch: %s", data)
	}
	res, data = doJSON(t, client, http.MethodPost, base+"/tasks", map[string]any{"name": "nope"}, investorHdr)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("investor write status %d: %s", res.StatusCode, data)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code != "forbidden" {
		t.Fatalf("forbidden envelope mismatch: %s", data)
	}

	// Unknown id update is a 404.
	res, data = doJSON(t, client, http.MethodPost, base+"/tasks", map[string]any{"id": "ghost", "name": "x"}, adminHdr)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown id status %d: %s", res.StatusCode, data)
	}
}

func TestTwoPhaseDeleteOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0/projects/villa-alpha"

	_, data := doJSON(t, client, http.MethodPost, base+"/tasks", map[string]any{"name": "temp"}, adminHdr)
	var created domain.Task
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	res, data := doJSON(t, client, http.MethodDelete, base+"/records/tasks/"+created.ID, nil, adminHdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("arm status %d: %s", res.StatusCode, data)
	}
	var outcome workspace.DeleteOutcome
	if err := json.Unmarshal(data, &outcome); err != nil || outcome.Deleted || outcome.Armed != created.ID {
		t.Fatalf("first call must arm: %s", data)
	}
	_, data = doJSON(t, client, http.MethodDelete, base+"/records/tasks/"+created.ID, nil, adminHdr)
	if err := json.Unmarshal(data, &outcome); err != nil || !outcome.Deleted {
		t.Fatalf("second call must delete: %s", data)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/tasks", nil, adminHdr)
	var listed []domain.Task
	if err := json.Unmarshal(data, &listed); err != nil || len(listed) != 0 {
		t.Fatalf("task must be gone: %s", data)
	}
}

func TestWeeklyTotalsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0/projects/villa-alpha"

	_, _ = doJSON(t, client, http.MethodPost, base+"/labor", map[string]any{
		"role": "Mason", "qty": 5, "rate": 100000, "start_date": "2025-09-03", "rate_type": "Daily",
	}, adminHdr)

	res, data := doJSON(t, client, http.MethodGet, base+"/totals/weekly?ref=2025-09-05", nil, investorHdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("totals status %d: %s", res.StatusCode, data)
	}
	var totals store.WeeklyTotals
	if err := json.Unmarshal(data, &totals); err != nil {
		t.Fatalf("unmarshal totals: %v", err)
	}
	if totals.Unpaid != 500000 || totals.Paid != 0 {
		t.Fatalf("totals = %+v, want unpaid 500000", totals)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/totals/weekly?ref=bogus", nil, investorHdr)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad ref status %d: %s", res.StatusCode, data)
	}
}

func TestCSVExportImportOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	base := srv.URL + "/v0/projects/villa-alpha"

	res, data := doJSON(t, client, http.MethodPost, base+"/records/materials/import", map[string]any{
		"text": "item,category,qty,unit_cost\nSand,Aggregates,2,30000\n",
	}, adminHdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("import status %d: %s", res.StatusCode, data)
	}
	var imported struct {
		Imported int `json:"imported"`
	}
	if err := json.Unmarshal(data, &imported); err != nil || imported.Imported != 1 {
		t.Fatalf("import count mismatch: %s", data)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/records/materials/export", nil, investorHdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("export status %d: %s", res.StatusCode, data)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(string(data), "Sand") {
		t.Fatalf("export missing row:\n%s", data)
	}
}

func TestBlogEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/blog/posts?published=true", nil, investorHdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, data)
	}
	var posts []domain.BlogPost
	if err := json.Unmarshal(data, &posts); err != nil || len(posts) != 1 {
		t.Fatalf("seed post missing: %s", data)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/blog/posts/welcome", nil, investorHdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status %d: %s", res.StatusCode, data)
	}
	var got struct {
		Post domain.BlogPost `json:"post"`
		HTML string          `json:"html"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal post: %v", err)
	}
	if !strings.Contains(got.HTML, "<strong>broke ground</strong>") {
		t.Fatalf("body not rendered: %q", got.HTML)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/blog/posts", map[string]any{"title": "x"}, investorHdr)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("investor blog write status %d: %s", res.StatusCode, data)
	}
}

func TestAuthTokenFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/token", map[string]any{
		"actor": "ayu", "role": "admin",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("token status %d: %s", res.StatusCode, data)
	}
	var minted struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &minted); err != nil || minted.Token == "" {
		t.Fatalf("token missing: %s", data)
	}

	hdr := map[string]string{"Authorization": "Bearer " + minted.Token}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/villa-alpha/tasks", map[string]any{"name": "via jwt"}, hdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("jwt write status %d: %s", res.StatusCode, data)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects/villa-alpha/tasks", nil, map[string]string{"Authorization": "Bearer garbage"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status %d: %s", res.StatusCode, data)
	}
}

func TestCurrencyFormatEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/currency/format?amount=1500000&currency=IDR", nil, investorHdr)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("format status %d: %s", res.StatusCode, data)
	}
	var out struct {
		Display string `json:"display"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.Display != "Rp1.5M" {
		t.Fatalf("display = %s", data)
	}
}
