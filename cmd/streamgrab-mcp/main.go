package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// extractTimeout covers a full extraction behind a busy gate.
const extractTimeout = 180 * time.Second

func main() {
	apiURL := os.Getenv("STREAMGRAB_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:5000"
	}
	c := newAPIClient(apiURL, os.Getenv("STREAMGRAB_API_KEY"), extractTimeout)

	s := server.NewMCPServer(
		"streamgrab",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	freshStreamTool := mcp.NewTool("fresh_stream",
		mcp.WithDescription("Get a freshly signed HLS (.m3u8) stream URL for a free live TV channel. Drives a headless browser on the channel page; takes 10-60 seconds unless the URL is cached."),
		mcp.WithString("channel",
			mcp.Required(),
			mcp.Description("Channel slug, e.g. 'ary-news' or 'green-entertainment'. Use list_channels to discover slugs."),
		),
		mcp.WithBoolean("force",
			mcp.Description("Bypass the cache and extract a new URL (default: false)"),
		),
		mcp.WithBoolean("verify",
			mcp.Description("Fetch the selected manifest and report whether it is a playable playlist (default: false)"),
		),
	)
	s.AddTool(freshStreamTool, handleFreshStream(c))

	listChannelsTool := mcp.NewTool("list_channels",
		mcp.WithDescription("List the known free channel slugs grouped by category."),
	)
	s.AddTool(listChannelsTool, handleListChannels(c))

	debugProbeTool := mcp.NewTool("debug_probe",
		mcp.WithDescription("Run a diagnostic session on a channel page and report what the network interceptor and every content probe saw. Use when fresh_stream fails."),
		mcp.WithString("channel",
			mcp.Required(),
			mcp.Description("Channel slug to diagnose"),
		),
	)
	s.AddTool(debugProbeTool, handleDebugProbe(c))

	clearCacheTool := mcp.NewTool("clear_cache",
		mcp.WithDescription("Drop the cached stream URL for one channel, or for all channels when no channel is given."),
		mcp.WithString("channel",
			mcp.Description("Channel slug; omit to clear everything"),
		),
	)
	s.AddTool(clearCacheTool, handleClearCache(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
