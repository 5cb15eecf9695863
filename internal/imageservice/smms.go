package imageservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/hexokit/internal/models"
)

// DefaultSmmsBaseURL is the SM.MS v2 API root.
const DefaultSmmsBaseURL = "https://sm.ms/api/v2/"

const (
	maxImageSize    = 5 << 20 // SM.MS rejects larger files
	codeRepeated    = "image_repeated"
	smmsUploadField = "smfile"
)

// Smms publishes images to SM.MS, reusing an earlier upload with the
// same file name when one exists.
type Smms struct {
	cfg     Config
	baseURL string
	client  *http.Client
	files   BinaryReader
}

func newSmms(cfg Config, client *http.Client, files BinaryReader) *Smms {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultSmmsBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Smms{cfg: cfg, baseURL: base, client: client, files: files}
}

func (s *Smms) Title() string { return s.cfg.FullName() }

type smmsResponse struct {
	Success    bool            `json:"success"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Images     string          `json:"images"`
	TotalPages int             `json:"TotalPages"`
}

type smmsImage struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

func (s *Smms) Handle(ctx context.Context, m *models.LinkMatch) models.UploadResult {
	if m.File == nil {
		return wrongFile(m)
	}
	var res models.UploadResult

	url, err := s.query(ctx, m.File.Name)
	if err != nil {
		res.ErrorMessages = append(res.ErrorMessages, err.Error())
		return res
	}
	if url == "" {
		url, err = s.upload(ctx, m)
		if err != nil {
			res.ErrorMessages = append(res.ErrorMessages, err.Error())
			return res
		}
	}
	res.ReplacedText = ImageHTML(url, m)
	return res
}

// query pages through the upload history looking for filename.
// It returns "" when the file was never uploaded.
func (s *Smms) query(ctx context.Context, filename string) (string, error) {
	totalPages := -1
	for page := 1; ; page++ {
		endpoint := s.baseURL + "upload_history?page=" + strconv.Itoa(page)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", fmt.Errorf("Error calling query API: url=%s, error=%v", endpoint, err)
		}
		req.Header.Set("Authorization", s.cfg.APIKey)

		res, err := s.do(req)
		if err != nil {
			return "", fmt.Errorf("Error calling query API: url=%s, error=%v", endpoint, err)
		}
		if !res.Success {
			return "", fmt.Errorf("Wrong query API response: url=%s, code=%s, message=%s", endpoint, res.Code, res.Message)
		}

		var images []smmsImage
		if len(res.Data) > 0 {
			if err := json.Unmarshal(res.Data, &images); err != nil {
				return "", fmt.Errorf("Error calling query API: url=%s, error=%v", endpoint, err)
			}
		}
		for _, img := range images {
			if img.Filename == filename {
				return img.URL, nil
			}
		}

		if totalPages == -1 {
			totalPages = res.TotalPages
		}
		if page >= totalPages {
			return "", nil
		}
	}
}

func (s *Smms) upload(ctx context.Context, m *models.LinkMatch) (string, error) {
	endpoint := s.baseURL + "upload"
	if s.files == nil {
		return "", fmt.Errorf("Error calling upload API: url=%s, error=%v", endpoint, errors.New("no binary reader configured"))
	}
	data, err := s.files.ReadBinary(m.File)
	if err != nil {
		return "", fmt.Errorf("Error calling upload API: url=%s, error=%v", endpoint, err)
	}
	if len(data) > maxImageSize {
		return "", fmt.Errorf("Error calling upload API: url=%s, error=file too large: %d bytes (max %d)", endpoint, len(data), maxImageSize)
	}

	contentType := m.MimeType
	if contentType == "" {
		contentType = ContentType(m.File.Extension)
	}
	body, boundary, err := multipartImage(m.File.Name, contentType, data)
	if err != nil {
		return "", fmt.Errorf("Error calling upload API: url=%s, error=%v", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("Error calling upload API: url=%s, error=%v", endpoint, err)
	}
	req.Header.Set("Authorization", s.cfg.APIKey)
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)

	res, err := s.do(req)
	if err != nil {
		return "", fmt.Errorf("Error calling upload API: url=%s, error=%v", endpoint, err)
	}
	switch {
	case res.Success:
		var img smmsImage
		if err := json.Unmarshal(res.Data, &img); err != nil {
			return "", fmt.Errorf("Error calling upload API: url=%s, error=%v", endpoint, err)
		}
		return img.URL, nil
	case res.Code == codeRepeated && res.Images != "":
		return res.Images, nil
	}
	return "", fmt.Errorf("Wrong upload API response: url=%s, code=%s, message=%s", endpoint, res.Code, res.Message)
}

func (s *Smms) do(req *http.Request) (*smmsResponse, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	var out smmsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// multipartImage encodes data as the single smfile part of a form.
func multipartImage(filename, contentType string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	boundary := "----HexokitFormBoundary" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := w.SetBoundary(boundary); err != nil {
		return nil, "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, smmsUploadField, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, boundary, nil
}
