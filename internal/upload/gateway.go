// Package upload delivers composed report documents to the external storage
// endpoint. One HTTP attempt per call with a bounded timeout; retrying is
// the caller's decision.
package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrUpload is returned for every delivery failure: unreachable endpoint,
// non-2xx status, unparseable response, or an explicit ok=false in the body.
var ErrUpload = errors.New("upload failed")

// Config holds the endpoint settings.
type Config struct {
	URL      string
	Token    string
	FolderID string
	Timeout  time.Duration // defaults to 120s, the endpoint can be slow
}

// Gateway posts documents to the remote endpoint.
type Gateway struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewGateway creates a gateway with its own bounded-timeout HTTP client.
func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// request is the wire payload. The duplicated filename/base64 keys are kept
// for compatibility with deployed versions of the receiving script, which
// have accepted either spelling over time.
type request struct {
	Token      string `json:"token"`
	Filename   string `json:"filename"`
	FileName   string `json:"fileName"`
	Base64     string `json:"base64"`
	FileBase64 string `json:"file_base64"`
	MimeType   string `json:"mimeType"`
	FolderID   string `json:"folderId"`
}

type response struct {
	OK    bool   `json:"ok"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Result is the outcome of a successful upload.
type Result struct {
	URL string `json:"url"`
}

// Upload posts the document in a single attempt and returns the remote URL.
func (g *Gateway) Upload(ctx context.Context, document []byte, filename string) (Result, error) {
	if g.cfg.URL == "" || g.cfg.Token == "" {
		return Result{}, fmt.Errorf("%w: endpoint url and token are not configured", ErrUpload)
	}

	encoded := base64.StdEncoding.EncodeToString(document)
	body, err := json.Marshal(request{
		Token:      g.cfg.Token,
		Filename:   filename,
		FileName:   filename,
		Base64:     encoded,
		FileBase64: encoded,
		MimeType:   "application/pdf",
		FolderID:   g.cfg.FolderID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("Upload request failed", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("%w: reading response: %v", ErrUpload, err)
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		snippet := string(raw)
		if len(snippet) > 600 {
			snippet = snippet[:600]
		}
		return Result{}, fmt.Errorf("%w: non-JSON response, HTTP %d: %s", ErrUpload, resp.StatusCode, snippet)
	}

	// The endpoint can answer HTTP 200 with ok=false.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !parsed.OK {
		return Result{}, fmt.Errorf("%w: HTTP %d, ok=%t, error=%q", ErrUpload, resp.StatusCode, parsed.OK, parsed.Error)
	}

	g.logger.Info("Report uploaded",
		zap.String("filename", filename),
		zap.Int("size", len(document)),
		zap.Duration("latency", time.Since(start)),
		zap.String("url", parsed.URL))
	return Result{URL: parsed.URL}, nil
}
