package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/streamgrab/models"
)

// apiClient calls the streamgrab HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newAPIClient(baseURL, apiKey string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// call sends a request and returns the body with the status code. Non-2xx
// statuses are not errors: the API explains failures in the body.
func (c *apiClient) call(ctx context.Context, method, path string, query url.Values) ([]byte, int, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// requestError renders the API's request-level error body, if it is one.
func requestError(body []byte, status int) (string, bool) {
	var er models.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error == nil {
		return "", false
	}
	msg := fmt.Sprintf("%s (HTTP %d): %s", er.Error.Code, status, er.Error.Message)
	if len(er.CloseMatches) > 0 {
		msg += "\nDid you mean: " + strings.Join(er.CloseMatches, ", ")
	}
	if er.Hint != "" {
		msg += "\nHint: " + er.Hint
	}
	return msg, true
}

func handleFreshStream(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		channel, err := request.RequireString("channel")
		if err != nil {
			return mcp.NewToolResultError("channel is required"), nil
		}
		q := url.Values{"channel": {channel}}
		if request.GetBool("force", false) {
			q.Set("force", "1")
		}
		if request.GetBool("verify", false) {
			q.Set("verify", "1")
		}

		body, status, err := c.call(ctx, http.MethodGet, "/api/v1/stream", q)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if msg, ok := requestError(body, status); ok {
			return mcp.NewToolResultError(msg), nil
		}

		var res models.ExtractionResult
		if err := json.Unmarshal(body, &res); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !res.Success {
			return mcp.NewToolResultError(formatFailure(&res)), nil
		}
		return mcp.NewToolResultText(formatStream(&res)), nil
	}
}

func formatStream(r *models.ExtractionResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Stream URL for %s (%s):\n%s\n", r.Channel, r.Source, r.StreamURL)
	if len(r.Alternates) > 0 {
		sb.WriteString("\nAlternates:\n")
		for _, a := range r.Alternates {
			fmt.Fprintf(&sb, "- %s\n", a)
		}
	}
	if r.Source == "fresh" {
		fmt.Fprintf(&sb, "\nScore %d, %d candidates, %.2fs\n", r.Score, r.CapturedCount, r.ElapsedSeconds)
	}
	if v := r.Verification; v != nil {
		if v.OK {
			kind := "media playlist"
			if v.IsMaster {
				kind = fmt.Sprintf("master playlist, %d variants", v.Variants)
			}
			fmt.Fprintf(&sb, "Verified: %s (HTTP %d)\n", kind, v.StatusCode)
		} else {
			fmt.Fprintf(&sb, "Verification failed: %s\n", v.Error)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatFailure(r *models.ExtractionResult) string {
	msg := fmt.Sprintf("%s for %s: %s", r.ErrorKind, r.Channel, r.Error)
	if r.DetectedURL != "" {
		msg += "\nLanded on: " + r.DetectedURL
	}
	if r.Hint != "" {
		msg += "\nHint: " + r.Hint
	}
	return msg
}

func handleListChannels(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, status, err := c.call(ctx, http.MethodGet, "/api/v1/channels", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if msg, ok := requestError(body, status); ok {
			return mcp.NewToolResultError(msg), nil
		}

		var resp models.ChannelsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		return mcp.NewToolResultText(formatChannels(&resp)), nil
	}
}

func formatChannels(r *models.ChannelsResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d channels\n", r.Total)
	cats := make([]string, 0, len(r.ByCategory))
	for cat := range r.ByCategory {
		cats = append(cats, cat)
	}
	slices.Sort(cats)
	for _, cat := range cats {
		names := r.ByCategory[cat]
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s (%d): %s\n", cat, len(names), strings.Join(names, ", "))
	}
	if r.Note != "" {
		fmt.Fprintf(&sb, "\n%s", r.Note)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func handleDebugProbe(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		channel, err := request.RequireString("channel")
		if err != nil {
			return mcp.NewToolResultError("channel is required"), nil
		}

		body, status, err := c.call(ctx, http.MethodGet, "/api/v1/debug", url.Values{"channel": {channel}})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if msg, ok := requestError(body, status); ok {
			return mcp.NewToolResultError(msg), nil
		}

		var report models.DiagnosticReport
		if err := json.Unmarshal(body, &report); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		return mcp.NewToolResultText(formatReport(&report)), nil
	}
}

func formatReport(r *models.DiagnosticReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Diagnostic report for %s (%.2fs)\n", r.Channel, r.ElapsedSeconds)
	fmt.Fprintf(&sb, "Landed: %s (HTTP %d) %q\n", r.LandedURL, r.HTTPStatus, r.Title)
	if r.Premium.IsGated {
		fmt.Fprintf(&sb, "Premium wall: %s\n", r.Premium.Reason)
	}
	fmt.Fprintf(&sb, "Video element: %v\n", r.VideoElementFound)
	fmt.Fprintf(&sb, "Network captures: %d, failed manifest requests: %d\n", len(r.NetworkCaptures), len(r.FailedRequests))

	methods := make([]string, 0, len(r.ProbeHits))
	for m := range r.ProbeHits {
		methods = append(methods, m)
	}
	slices.Sort(methods)
	for _, m := range methods {
		fmt.Fprintf(&sb, "Probe %s: %d hits\n", m, len(r.ProbeHits[m]))
	}
	if len(r.Iframes) > 0 {
		fmt.Fprintf(&sb, "Iframes: %s\n", strings.Join(r.Iframes, ", "))
	}
	if r.Best != nil {
		fmt.Fprintf(&sb, "Best: %s (score %d, %s)\n", r.Best.URL, r.Best.Score, r.Best.Method)
	}
	if r.ErrorKind != "" {
		fmt.Fprintf(&sb, "Error: %s: %s\n", r.ErrorKind, r.Error)
	}
	if r.Hint != "" {
		fmt.Fprintf(&sb, "Hint: %s\n", r.Hint)
	}
	fmt.Fprintf(&sb, "States: %s\n", strings.Join(r.States, " → "))
	if r.Page != nil && r.Page.Markdown != "" {
		fmt.Fprintf(&sb, "\nPage:\n%s\n", r.Page.Markdown)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func handleClearCache(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := "/api/v1/cache"
		if channel := strings.TrimSpace(request.GetString("channel", "")); channel != "" {
			path += "/" + url.PathEscape(channel)
		}

		body, status, err := c.call(ctx, http.MethodDelete, path, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if msg, ok := requestError(body, status); ok {
			return mcp.NewToolResultError(msg), nil
		}

		var resp struct {
			Channel string `json:"channel"`
			Cleared any    `json:"cleared"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		switch v := resp.Cleared.(type) {
		case bool:
			if !v {
				return mcp.NewToolResultText("No cache entry for " + resp.Channel), nil
			}
			return mcp.NewToolResultText("Cleared cache entry for " + resp.Channel), nil
		case float64:
			return mcp.NewToolResultText(fmt.Sprintf("Cleared %d cache entries", int(v))), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
