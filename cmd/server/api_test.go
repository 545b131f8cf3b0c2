package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatroom/internal/history"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := LoadConfig()
	cfg.StaticDir = t.TempDir()
	return NewServer(cfg, store, nil)
}

func doJSON(t *testing.T, s *Server, method, target string, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	parsed := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed), "body: %s", w.Body.String())
	return w, parsed
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w, body := doJSON(t, s, "GET", "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "chatroom", body["service"])
	assert.Equal(t, false, body["agent_configured"])
}

func TestStatsEndpointEmpty(t *testing.T) {
	s := newTestServer(t)

	w, body := doJSON(t, s, "GET", "/api/stats", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["online_users"])
	assert.EqualValues(t, 0, body["voice_rooms"])
	assert.EqualValues(t, 0, body["pending_calls"])
	assert.EqualValues(t, 0, body["active_calls"])
}

func TestHistoryAPIReturnsMessages(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.store.SaveMessage("alice", "hello", "10:00:00", ""))
	}
	require.NoError(t, s.store.SaveMessage("bob", "hi there", "10:00:01", ""))

	w, body := doJSON(t, s, "GET", "/api/history?limit=2&username=alice", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 2, body["limit"])
	assert.Len(t, body["messages"], 2)
}

func TestHistoryAPIClampsLimit(t *testing.T) {
	s := newTestServer(t)

	_, body := doJSON(t, s, "GET", "/api/history?limit=9999", nil, "")
	assert.EqualValues(t, 500, body["limit"])

	_, body = doJSON(t, s, "GET", "/api/history?limit=-3", nil, "")
	assert.EqualValues(t, 1, body["limit"])

	_, body = doJSON(t, s, "GET", "/api/history", nil, "")
	assert.EqualValues(t, 50, body["limit"])
}

func multipartUpload(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestUploadStoresImage(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartUpload(t, "file", "cat.png", "image/png", []byte("not really a png"))

	w, parsed := doJSON(t, s, "POST", "/upload", body, contentType)

	assert.Equal(t, http.StatusOK, w.Code)
	url, _ := parsed["url"].(string)
	require.NotEmpty(t, url)
	assert.True(t, strings.HasPrefix(url, "/static/uploads/"), "url = %s", url)
	assert.True(t, strings.HasSuffix(url, "_cat.png"), "url = %s", url)
}

func TestUploadRejectsNonImage(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartUpload(t, "file", "notes.txt", "text/plain", []byte("text"))

	w, parsed := doJSON(t, s, "POST", "/upload", body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Only image files are allowed.", parsed["error"])
}

func TestUploadRejectsMissingFile(t *testing.T) {
	s := newTestServer(t)

	w, parsed := doJSON(t, s, "POST", "/upload", nil, "multipart/form-data; boundary=x")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", parsed["error"])
}

func TestUploadRejectsHiddenFilename(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartUpload(t, "file", ".bashrc", "image/png", []byte("x"))

	w, parsed := doJSON(t, s, "POST", "/upload", body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid filename", parsed["error"])
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartUpload(t, "file", "big.png", "image/png", make([]byte, maxUploadBytes+1))

	w, parsed := doJSON(t, s, "POST", "/upload", body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File too large. Maximum size is 5 MB.", parsed["error"])
}
