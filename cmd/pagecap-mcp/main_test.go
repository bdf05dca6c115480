package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callTool(t *testing.T, apiURL string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = "capture_page"
	req.Params.Arguments = args
	res, err := handleCapture(apiURL, "k1")(context.Background(), req)
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func TestCapturePage_Success(t *testing.T) {
	var got captureRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/capture", r.URL.Path)
		assert.Equal(t, "k1", r.Header.Get("X-API-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"name":"example.com.pdf","path":"/out/example.com.pdf","format":"pdf","timing":{"total_ms":42}}`))
	}))
	defer srv.Close()

	res := callTool(t, srv.URL, map[string]any{"webpage": "https://example.com", "format": "pdf", "clean": "complete"})
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Exported example.com.pdf at /out/example.com.pdf")
	assert.Equal(t, "complete", got.Clean)
}

func TestCapturePage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"UNSUPPORTED_FORMAT","message":"Unsupported format : gif"}}`))
	}))
	defer srv.Close()

	res := callTool(t, srv.URL, map[string]any{"webpage": "https://example.com", "format": "gif"})
	assert.True(t, res.IsError)
	assert.Equal(t, "[UNSUPPORTED_FORMAT] Unsupported format : gif", resultText(t, res))
}

func TestCapturePage_MissingArgs(t *testing.T) {
	res := callTool(t, "http://127.0.0.1:0", map[string]any{"format": "png"})
	assert.True(t, res.IsError)
}

func TestNewServer(t *testing.T) {
	assert.NotNil(t, newServer("http://127.0.0.1:8080", ""))
}
