package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// captureRequest mirrors the pagecap API request model.
type captureRequest struct {
	Webpage string `json:"webpage"`
	Format  string `json:"format"`
	Clean   string `json:"clean,omitempty"`
	Name    string `json:"name,omitempty"`
}

// captureResponse mirrors the pagecap API response model.
type captureResponse struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Format  string `json:"format"`
	Timing  struct {
		TotalMs int64 `json:"total_ms"`
	} `json:"timing"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("PAGECAP_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PAGECAP_API_KEY")

	s := newServer(apiURL, apiKey)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL, apiKey string) *server.MCPServer {
	s := server.NewMCPServer(
		"pagecap",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	tool := mcp.NewTool("capture_page",
		mcp.WithDescription("Capture a live web page with a headless browser after dismissing cookie banners, expanding hidden content and waiting for the page to settle. Returns the artifact file name and path on the capture server."),
		mcp.WithString("webpage",
			mcp.Required(),
			mcp.Description("Absolute URL of the page to capture"),
		),
		mcp.WithString("format",
			mcp.Required(),
			mcp.Description("Export format: png, jpg, jpeg, webp (screenshots), pdf, md (markdown) or raw (MHTML archive plus static HTML)"),
			mcp.Enum("png", "jpg", "jpeg", "webp", "pdf", "md", "raw"),
		),
		mcp.WithString("clean",
			mcp.Description("Cleanup level: 'off', 'banners' (default, dismiss consent dialogs and hide overlays) or 'complete' (also block ad and tracker requests)"),
			mcp.Enum("off", "banners", "complete"),
		),
		mcp.WithString("name",
			mcp.Description("Artifact base name; derived from the URL when omitted"),
		),
	)
	s.AddTool(tool, handleCapture(apiURL, apiKey))
	return s
}

func handleCapture(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 5 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		webpage, err := request.RequireString("webpage")
		if err != nil {
			return mcp.NewToolResultError("webpage is required"), nil
		}
		format, err := request.RequireString("format")
		if err != nil {
			return mcp.NewToolResultError("format is required"), nil
		}

		payload := captureRequest{
			Webpage: webpage,
			Format:  format,
			Clean:   request.GetString("clean", ""),
			Name:    request.GetString("name", ""),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/capture", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp captureResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			msg := "capture failed"
			if resp.Error != nil {
				msg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(msg), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Exported %s at %s (%s, %dms)\nDownload: %s/api/v1/artifacts/%s",
			resp.Name, resp.Path, resp.Format, resp.Timing.TotalMs, apiURL, resp.Name)), nil
	}
}

// apiPost sends a POST request to the pagecap API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
