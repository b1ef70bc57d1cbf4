package models

import "time"

// ExtractionResult is the terminal outcome of one Extract call.
// It is returned to the caller and, on success, persisted to the cache.
type ExtractionResult struct {
	// Success indicates whether a stream URL was selected.
	Success bool `json:"success"`

	// Channel is the canonical channel name the result belongs to.
	Channel string `json:"channel"`

	// StreamURL is the selected signed manifest URL.
	StreamURL string `json:"stream_url,omitempty"`

	// Alternates holds up to three runner-up URLs, best first.
	Alternates []string `json:"alternates,omitempty"`

	// Score is the selected URL's candidate score.
	Score int `json:"selected_score,omitempty"`

	// CapturedCount is the number of unique candidates after deduplication.
	CapturedCount int `json:"captured_count"`

	// VideoElementFound records whether a playable element was ever located.
	VideoElementFound bool `json:"video_element_found"`

	// Attempts is the number of browser sessions the extraction used.
	Attempts int `json:"attempts,omitempty"`

	// ElapsedSeconds is the wall-clock time spent, rounded to 10ms.
	ElapsedSeconds float64 `json:"extraction_time_seconds"`

	// Source is "fresh" or "cache".
	Source string `json:"source"`

	// ErrorKind, Error and Hint are populated only when Success is false.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	Hint      string    `json:"hint,omitempty"`

	// DetectedURL is the landed URL when the page turned out to be gated.
	DetectedURL string `json:"detected_url,omitempty"`

	// Verification is set when the caller asked for the manifest to be fetched.
	Verification *Verification `json:"verification,omitempty"`

	// Note is a short operator-facing remark.
	Note string `json:"note,omitempty"`
}

// CacheEntry is the last resolved URL (and runner-ups) for a channel.
type CacheEntry struct {
	Channel    string    `json:"channel"`
	URL        string    `json:"url"`
	Alternates []string  `json:"alternates,omitempty"`
	InsertedAt time.Time `json:"inserted_at"`
}

// CacheSetRequest is the payload for PUT /api/v1/cache/:channel.
type CacheSetRequest struct {
	URL        string   `json:"url" binding:"required,url"`
	Alternates []string `json:"alternates,omitempty"`
}

// Verification reports what the manifest verifier saw when fetching a URL.
type Verification struct {
	OK          bool   `json:"ok"`
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
	IsMaster    bool   `json:"is_master"`
	Variants    int    `json:"variants"`
	Segments    int    `json:"segments"`
	Error       string `json:"error,omitempty"`
}

// CandidateInfo is the wire view of a captured candidate.
type CandidateInfo struct {
	URL        string    `json:"url"`
	Method     string    `json:"method"`
	HTTPStatus int       `json:"http_status"`
	Score      int       `json:"score"`
	ObservedAt time.Time `json:"observed_at"`
}

// FailedRequest is a manifest request that failed, kept for diagnostics only.
type FailedRequest struct {
	URL        string    `json:"url"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// PremiumInfo is the wire view of a premium-wall verdict.
type PremiumInfo struct {
	IsGated bool   `json:"is_gated"`
	Reason  string `json:"reason,omitempty"`
}

// PageSummary is a short readable rendering of what the page showed.
type PageSummary struct {
	Title     string `json:"title,omitempty"`
	SiteName  string `json:"site_name,omitempty"`
	Excerpt   string `json:"excerpt,omitempty"`
	Markdown  string `json:"markdown,omitempty"`
	Tokens    int    `json:"tokens"`
	Truncated bool   `json:"truncated,omitempty"`
}

// DiagnosticReport is the response of the lighter-weight debug probe.
type DiagnosticReport struct {
	Channel           string                     `json:"channel"`
	RequestedURL      string                     `json:"requested_url,omitempty"`
	LandedURL         string                     `json:"landed_url,omitempty"`
	Title             string                     `json:"title,omitempty"`
	HTTPStatus        int                        `json:"http_status,omitempty"`
	Premium           PremiumInfo                `json:"premium"`
	NetworkCaptures   []CandidateInfo            `json:"network_captures"`
	FailedRequests    []FailedRequest            `json:"failed_requests"`
	ProbeHits         map[string][]CandidateInfo `json:"probe_hits"`
	VideoElementFound bool                       `json:"video_element_found"`
	Iframes           []string                   `json:"iframes,omitempty"`
	Best              *CandidateInfo             `json:"best,omitempty"`
	States            []string                   `json:"states"`
	ElapsedSeconds    float64                    `json:"elapsed_seconds"`
	Page              *PageSummary               `json:"page,omitempty"`
	Verification      *Verification              `json:"verification,omitempty"`
	ErrorKind         ErrorKind                  `json:"error_kind,omitempty"`
	Error             string                     `json:"error,omitempty"`
	Hint              string                     `json:"hint,omitempty"`
}

// ChannelsResponse is the response for GET /api/v1/channels.
type ChannelsResponse struct {
	Total      int                 `json:"total_channels"`
	ByCategory map[string][]string `json:"channels_by_category"`
	AllSlugs   []string            `json:"all_slugs"`
	Note       string              `json:"note,omitempty"`
}

// ErrorResponse is the body for request-level failures.
type ErrorResponse struct {
	Success           bool         `json:"success"`
	Error             *ErrorDetail `json:"error"`
	Hint              string       `json:"hint,omitempty"`
	CloseMatches      []string     `json:"close_matches,omitempty"`
	AvailableChannels []string     `json:"available_channels,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string    `json:"status"` // "healthy" or "busy"
	Uptime       string    `json:"uptime"`
	Timestamp    time.Time `json:"timestamp"`
	CacheEntries int       `json:"cache_entries"`
	Gate         GateStats `json:"gate"`
	Version      string    `json:"version"`
}

// GateStats reports the state of the single-flight concurrency gate.
type GateStats struct {
	Busy      bool       `json:"busy"`
	BusySince *time.Time `json:"busy_since,omitempty"`
}
