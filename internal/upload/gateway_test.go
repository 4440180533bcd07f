package upload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGateway(url string) *Gateway {
	return NewGateway(Config{
		URL: url, Token: "secreto", FolderID: "folder-1", Timeout: 2 * time.Second,
	}, zap.NewNop())
}

func TestUploadSuccess(t *testing.T) {
	document := []byte("%PDF-1.4 fake")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "secreto", req["token"])
		assert.Equal(t, "Informe_obra_2025-03-14_ParteDiario.pdf", req["filename"])
		assert.Equal(t, req["filename"], req["fileName"], "compat key carries the same value")
		assert.Equal(t, req["base64"], req["file_base64"])
		assert.Equal(t, "application/pdf", req["mimeType"])
		assert.Equal(t, "folder-1", req["folderId"])

		decoded, err := base64.StdEncoding.DecodeString(req["base64"])
		require.NoError(t, err)
		assert.Equal(t, document, decoded)

		json.NewEncoder(w).Encode(map[string]any{"ok": true, "url": "https://drive.example/abc"})
	}))
	defer srv.Close()

	res, err := newGateway(srv.URL).Upload(context.Background(), document, "Informe_obra_2025-03-14_ParteDiario.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example/abc", res.URL)
}

func TestUploadFailureModes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "boom"})
			},
		},
		{
			name: "2xx with ok=false",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "token inválido"})
			},
		},
		{
			name: "non-JSON body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>It broke</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newGateway(srv.URL).Upload(context.Background(), []byte("doc"), "x.pdf")
			assert.ErrorIs(t, err, ErrUpload)
		})
	}
}

func TestUploadUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	_, err := newGateway(srv.URL).Upload(context.Background(), []byte("doc"), "x.pdf")
	assert.ErrorIs(t, err, ErrUpload)
}

func TestUploadRequiresConfiguration(t *testing.T) {
	g := NewGateway(Config{}, zap.NewNop())
	_, err := g.Upload(context.Background(), []byte("doc"), "x.pdf")
	assert.ErrorIs(t, err, ErrUpload)
}

func TestUploadSingleAttempt(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newGateway(srv.URL).Upload(context.Background(), []byte("doc"), "x.pdf")
	require.ErrorIs(t, err, ErrUpload)
	assert.Equal(t, 1, attempts, "gateway must not retry")
}
