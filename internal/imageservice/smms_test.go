package imageservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/starford/hexokit/internal/models"
)

type memFiles map[string][]byte

func (m memFiles) ReadBinary(f *models.File) ([]byte, error) {
	data, ok := m[f.Path]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}

// fakeSmms serves upload_history from pages and records uploads.
type fakeSmms struct {
	mu       sync.Mutex
	pages    [][]smmsImage
	uploads  []string
	auth     []string
	upload   func(w http.ResponseWriter, filename string)
	failPage int
}

func (f *fakeSmms) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/upload_history"):
		page := r.URL.Query().Get("page")
		idx := int(page[0] - '1')
		if idx+1 == f.failPage {
			writeBody(w, map[string]any{"success": false, "code": "unauthorized", "message": "bad token"})
			return
		}
		data, _ := json.Marshal(f.pages[idx])
		writeBody(w, map[string]any{
			"success":    true,
			"code":       "success",
			"data":       json.RawMessage(data),
			"TotalPages": len(f.pages),
		})
	case strings.HasSuffix(r.URL.Path, "/upload"):
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, hdr, err := r.FormFile("smfile")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(file)
		f.mu.Lock()
		f.uploads = append(f.uploads, hdr.Filename+":"+hdr.Header.Get("Content-Type")+":"+string(body))
		f.mu.Unlock()
		f.upload(w, hdr.Filename)
	default:
		http.NotFound(w, r)
	}
}

func writeBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newSmmsFixture(t *testing.T, f *fakeSmms) Uploader {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	files := memFiles{"pic.png": []byte("PNGDATA")}
	r := New([]Config{{Type: TypeSmms, Name: "s", APIKey: "token", BaseURL: srv.URL + "/api/v2"}},
		WithBinaryReader(files), WithHTTPClient(srv.Client()))
	u, ok := r.Get("")
	if !ok {
		t.Fatal("no uploader")
	}
	return u
}

func TestSmms_FoundInHistory(t *testing.T) {
	f := &fakeSmms{pages: [][]smmsImage{
		{{Filename: "other.png", URL: "https://i/other.png"}},
		{{Filename: "pic.png", URL: "https://i/pic.png"}},
	}}
	u := newSmmsFixture(t, f)

	res := u.Handle(context.Background(), imageMatch("pic.png"))
	if res.ReplacedText != `<img src="https://i/pic.png" alt="pic.png" srcFile="pic.png">` {
		t.Errorf("replaced = %q, errors = %q", res.ReplacedText, res.ErrorMessages)
	}
	if len(f.uploads) != 0 {
		t.Errorf("unexpected uploads: %v", f.uploads)
	}
	for _, a := range f.auth {
		if a != "token" {
			t.Errorf("Authorization = %q", a)
		}
	}
}

func TestSmms_UploadOnMiss(t *testing.T) {
	f := &fakeSmms{
		pages: [][]smmsImage{{}},
		upload: func(w http.ResponseWriter, name string) {
			writeBody(w, map[string]any{"success": true, "code": "success", "data": map[string]string{"url": "https://i/new/" + name}})
		},
	}
	u := newSmmsFixture(t, f)
	m := imageMatch("pic.png")
	m.MimeType = "image/png"

	res := u.Handle(context.Background(), m)
	if !strings.Contains(res.ReplacedText, `src="https://i/new/pic.png"`) {
		t.Errorf("replaced = %q, errors = %q", res.ReplacedText, res.ErrorMessages)
	}
	if len(f.uploads) != 1 || f.uploads[0] != "pic.png:image/png:PNGDATA" {
		t.Errorf("uploads = %v", f.uploads)
	}
}

func TestSmms_RepeatedImage(t *testing.T) {
	f := &fakeSmms{
		pages: [][]smmsImage{{}},
		upload: func(w http.ResponseWriter, _ string) {
			writeBody(w, map[string]any{"success": false, "code": "image_repeated", "message": "exists", "images": "https://i/old.png"})
		},
	}
	u := newSmmsFixture(t, f)
	res := u.Handle(context.Background(), imageMatch("pic.png"))
	if !strings.Contains(res.ReplacedText, `src="https://i/old.png"`) || len(res.ErrorMessages) != 0 {
		t.Errorf("Handle = %+v", res)
	}
}

func TestSmms_UploadRejected(t *testing.T) {
	f := &fakeSmms{
		pages: [][]smmsImage{{}},
		upload: func(w http.ResponseWriter, _ string) {
			writeBody(w, map[string]any{"success": false, "code": "flood", "message": "slow down"})
		},
	}
	u := newSmmsFixture(t, f)
	res := u.Handle(context.Background(), imageMatch("pic.png"))
	if res.ReplacedText != "" || len(res.ErrorMessages) != 1 {
		t.Fatalf("Handle = %+v", res)
	}
	if !strings.HasPrefix(res.ErrorMessages[0], "Wrong upload API response: url=") ||
		!strings.Contains(res.ErrorMessages[0], "code=flood, message=slow down") {
		t.Errorf("message = %q", res.ErrorMessages[0])
	}
}

func TestSmms_QueryFailureSkipsUpload(t *testing.T) {
	f := &fakeSmms{pages: [][]smmsImage{{}}, failPage: 1}
	u := newSmmsFixture(t, f)
	res := u.Handle(context.Background(), imageMatch("pic.png"))
	if res.ReplacedText != "" || len(res.ErrorMessages) != 1 {
		t.Fatalf("Handle = %+v", res)
	}
	if !strings.HasPrefix(res.ErrorMessages[0], "Wrong query API response:") {
		t.Errorf("message = %q", res.ErrorMessages[0])
	}
	if len(f.uploads) != 0 {
		t.Errorf("uploads = %v", f.uploads)
	}
}

func TestSmms_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	u, _ := New([]Config{{Type: TypeSmms, Name: "s", APIKey: "k", BaseURL: srv.URL + "/"}}).Get("")

	res := u.Handle(context.Background(), imageMatch("pic.png"))
	if len(res.ErrorMessages) != 1 || !strings.Contains(res.ErrorMessages[0], "Error calling query API") ||
		!strings.Contains(res.ErrorMessages[0], "HTTP 502") {
		t.Errorf("Handle = %+v", res)
	}
}

func TestMultipartImage(t *testing.T) {
	body, boundary, err := multipartImage("a.png", "image/png", []byte("x"))
	if err != nil {
		t.Fatalf("multipartImage: %v", err)
	}
	if len(boundary) > 70 {
		t.Errorf("boundary too long: %d", len(boundary))
	}
	s := body.String()
	if !strings.Contains(s, `name="smfile"; filename="a.png"`) || !strings.Contains(s, "Content-Type: image/png") {
		t.Errorf("body = %q", s)
	}
}
