package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/streamgrab/models"
)

// Event types.
const (
	EventExtracted = "stream.extracted"
	EventFailed    = "stream.failed"
)

// SignatureHeader carries "sha256=<hex>" of the request body.
const SignatureHeader = "X-Streamgrab-Signature"

const deliverTimeout = 10 * time.Second

// defaultDelays are the waits before each delivery attempt.
var defaultDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// Event is the payload sent to the webhook endpoint.
type Event struct {
	Type      string                   `json:"type"`
	Channel   string                   `json:"channel"`
	Timestamp int64                    `json:"timestamp"`
	Data      *models.ExtractionResult `json:"data"`
}

// Notifier posts an event for every fresh extraction outcome.
// It is safe for concurrent use.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	delays []time.Duration
	now    func() time.Time
}

// New returns a Notifier posting to url, or nil when url is empty.
func New(url, secret string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: deliverTimeout},
		delays: defaultDelays,
		now:    time.Now,
	}
}

// Notify delivers r in the background. Cache hits are not events.
func (n *Notifier) Notify(r *models.ExtractionResult) {
	if n == nil || r == nil || r.Source == "cache" {
		return
	}
	typ := EventExtracted
	if !r.Success {
		typ = EventFailed
	}
	ev := &Event{
		Type:      typ,
		Channel:   r.Channel,
		Timestamp: n.now().Unix(),
		Data:      r,
	}
	go n.deliverWithRetry(ev)
}

func (n *Notifier) deliverWithRetry(ev *Event) {
	for attempt, delay := range n.delays {
		if delay > 0 {
			time.Sleep(delay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		err := n.Deliver(ctx, ev)
		cancel()
		if err == nil {
			slog.Info("webhook delivered",
				"event", ev.Type,
				"channel", ev.Channel,
				"attempt", attempt+1,
			)
			return
		}
		slog.Warn("webhook delivery failed",
			"event", ev.Type,
			"channel", ev.Channel,
			"attempt", attempt+1,
			"error", err,
		)
	}
	slog.Error("webhook delivery exhausted all retries",
		"url", n.url,
		"event", ev.Type,
		"channel", ev.Channel,
	)
}

// Deliver posts one event synchronously.
func (n *Notifier) Deliver(ctx context.Context, ev *Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Streamgrab-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Valid reports whether header is the signature of body under secret.
// Receivers use it to authenticate deliveries.
func Valid(secret string, body []byte, header string) bool {
	if !strings.HasPrefix(header, "sha256=") {
		return false
	}
	return hmac.Equal([]byte(header), []byte(Sign(secret, body)))
}
