package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/hexokit/internal/apperr"
	"github.com/starford/hexokit/internal/convert"
	"github.com/starford/hexokit/internal/imageservice"
	"github.com/starford/hexokit/internal/models"
	"github.com/starford/hexokit/internal/session"
	"github.com/starford/hexokit/internal/slug"
	"github.com/starford/hexokit/internal/testutil"
	"github.com/starford/hexokit/internal/vault"
)

type testEnvOpts struct {
	authEnabled bool
	token       string
	sse         http.Handler
	exportDir   string
	converter   Converter
}

// testEnv sets up a temp vault, SQLite history, session, and router for testing.
func testEnv(t *testing.T, o testEnvOpts) (http.Handler, string) {
	t.Helper()

	vaultDir, store := testutil.TestVault(t)
	testutil.WriteFiles(t, vaultDir, map[string]string{
		"posts/hello.md":  "---\ntitle: Hello\ntags: [a]\n---\n## Intro\n[[#Intro]] ![[pic.png]]\n",
		"assets/pic.png":  "png",
		"posts/notes.txt": "plain",
	})
	db := testutil.TestDB(t)
	docs := vault.New(store)
	engine := convert.NewEngine(docs,
		convert.WithImageServices(imageservice.New([]imageservice.Config{
			{Type: imageservice.TypeLocal, Name: "local", FilePath: "/img/"},
		})),
		convert.WithSlugifier(slug.MarkdownItPlus),
		convert.WithLogger(testutil.Logger()),
	)
	sess := session.New(docs, engine, session.WithRecorder(db), session.WithLogger(testutil.Logger()))
	sess.Ready()

	conv := o.converter
	if conv == nil {
		conv = sess
	}
	svc := &Service{Converter: conv, History: db, Notes: store, ExportDir: o.exportDir}
	return NewRouter(svc, o.authEnabled, o.token, o.sse), vaultDir
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type convertResult struct {
	ID         string           `json:"id"`
	Status     models.RunStatus `json:"status"`
	Content    string           `json:"content"`
	Failed     int              `json:"failed"`
	References []ReferenceLine  `json:"references"`
}

func TestConvertNote(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})

	w := do(t, router, http.MethodPost, "/convert", ConvertRequest{Path: "posts/hello.md"})
	if w.Code != http.StatusOK {
		t.Fatalf("convert status = %d, body = %s", w.Code, w.Body.String())
	}
	var res convertResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Status != models.RunSuccess || res.Failed != 0 {
		t.Errorf("status = %s, failed = %d", res.Status, res.Failed)
	}
	if len(res.References) != 2 {
		t.Fatalf("references = %+v", res.References)
	}
	if res.References[0].Replaced != "[Intro](#intro)" {
		t.Errorf("heading replaced = %q", res.References[0].Replaced)
	}
	if res.ID == "" {
		t.Error("missing run id")
	}
}

func TestConvertErrors(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})

	cases := []struct {
		name string
		body any
		want int
	}{
		{"missing path", map[string]string{}, http.StatusBadRequest},
		{"unsupported", ConvertRequest{Path: "posts/notes.txt"}, http.StatusBadRequest},
		{"not found", ConvertRequest{Path: "ghost.md"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/convert", tc.body)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/convert", bytes.NewReader([]byte("{")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}
}

type stubConverter struct {
	err error
}

func (s stubConverter) Convert(context.Context, string) (*models.Run, error) { return nil, s.err }
func (s stubConverter) Status() (models.RunStatus, *models.Run) {
	return models.RunConverting, &models.Run{Path: "a.md", Status: models.RunConverting}
}
func (s stubConverter) Last() (*models.Run, bool) { return nil, false }

func TestConvertBusy(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{converter: stubConverter{err: apperr.ErrBusy}})

	w := do(t, router, http.MethodPost, "/convert", ConvertRequest{Path: "posts/hello.md"})
	if w.Code != http.StatusConflict {
		t.Errorf("busy = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodGet, "/status", nil)
	var st StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Status != models.RunConverting || st.Current == nil || st.Current.Path != "a.md" {
		t.Errorf("status = %+v", st)
	}
}

func TestStatusReady(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})
	w := do(t, router, http.MethodGet, "/status", nil)
	var st StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if w.Code != http.StatusOK || st.Status != models.RunReady {
		t.Errorf("status = %d %+v", w.Code, st)
	}
}

func TestConversionHistory(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})

	if w := do(t, router, http.MethodGet, "/conversions/last", nil); w.Code != http.StatusNotFound {
		t.Errorf("last before any run = %d, want 404", w.Code)
	}

	w := do(t, router, http.MethodPost, "/convert", ConvertRequest{Path: "posts/hello.md"})
	var first convertResult
	_ = json.Unmarshal(w.Body.Bytes(), &first)

	w = do(t, router, http.MethodGet, "/conversions?path=posts/hello.md", nil)
	var list ConversionListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || len(list.Conversions) != 1 || list.Conversions[0].ID != first.ID {
		t.Errorf("list = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/conversions/"+first.ID, nil)
	var got convertResult
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if w.Code != http.StatusOK || got.Content != first.Content {
		t.Errorf("get = %d, content %q", w.Code, got.Content)
	}

	w = do(t, router, http.MethodGet, "/conversions/last", nil)
	var last convertResult
	_ = json.Unmarshal(w.Body.Bytes(), &last)
	if last.ID != first.ID {
		t.Errorf("last id = %q, want %q", last.ID, first.ID)
	}

	if w := do(t, router, http.MethodGet, "/conversions/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown id = %d, want 404", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})
	w := do(t, router, http.MethodGet, "/notes", nil)
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Notes[0].Path != "posts/hello.md" {
		t.Errorf("notes = %+v", resp)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{authEnabled: true, token: "secret123"})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed status = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{authEnabled: true, token: "secret123"})

	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{authEnabled: true, token: "secret123"})

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{authEnabled: true, token: "secret123"})

	if w := do(t, router, http.MethodGet, "/status?access_token=secret123", nil); w.Code != http.StatusOK {
		t.Errorf("query token = %d, want 200", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/status?access_token=nope", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad query token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})

	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{authEnabled: true, token: "secret", sse: blockingSSE})

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{sse: blockingSSE})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{authEnabled: true, token: "tok", sse: blockingSSE})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// Export tests.

func TestServeExport(t *testing.T) {
	exportDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(exportDir, "hello.md"), []byte("converted"), 0o644); err != nil {
		t.Fatal(err)
	}
	router, _ := testEnv(t, testEnvOpts{exportDir: exportDir})

	w := do(t, router, http.MethodGet, "/exports/hello.md", nil)
	if w.Code != http.StatusOK || w.Body.String() != "converted" {
		t.Errorf("export = %d %q", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodGet, "/exports/missing.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing export = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/exports/hello.png", nil); w.Code != http.StatusBadRequest {
		t.Errorf("non-markdown export = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/exports/..%2Fsecret.md", nil); w.Code != http.StatusBadRequest && w.Code != http.StatusNotFound {
		t.Errorf("traversal = %d, want 400 or 404", w.Code)
	}
}

func TestExportsDisabled(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})
	if w := do(t, router, http.MethodGet, "/exports/hello.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("exports without dir = %d, want 404", w.Code)
	}
}
