package notify

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bfscompany/portfoliobot/internal/events"
)

const defaultEndpoint = "https://api.pushover.net/1/messages.json"

// Pushover delivers short push notifications. Delivery is fire-and-forget:
// the boolean result is informational and callers never treat a failed push
// as an error.
type Pushover struct {
	token    string
	user     string
	endpoint string
	client   *http.Client
	logger   *events.Logger
}

// NewPushover creates a Pushover client. Missing credentials are allowed;
// every push is then skipped with a logged reason.
func NewPushover(token, user string, timeout time.Duration, logger *events.Logger) *Pushover {
	return &Pushover{
		token:    token,
		user:     user,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// SetEndpoint overrides the Pushover API URL, primarily for tests.
func (p *Pushover) SetEndpoint(endpoint string) {
	p.endpoint = endpoint
}

// Push sends one plain-text message.
func (p *Pushover) Push(ctx context.Context, text string) bool {
	if p.token == "" || p.user == "" {
		p.logger.Event("pushover_skipped", "reason", "missing_credentials")
		return false
	}

	form := url.Values{
		"token":   {p.token},
		"user":    {p.user},
		"message": {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		p.logger.Event("pushover_error", "error", err.Error(), "preview", preview(text))
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Event("pushover_error", "error", err.Error(), "preview", preview(text))
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		p.logger.Event("pushover_error", "status", resp.StatusCode, "preview", preview(text))
		return false
	}

	p.logger.Event("pushover_delivered", "characters", len(text))
	return true
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= 120 {
		return text
	}
	return string(runes[:120])
}
