package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger emits structured event logs and optionally forwards each payload to
// a central collector webhook. Forwarding is best-effort: a failed delivery
// is logged at debug level and otherwise ignored.
type Logger struct {
	log        *log.Logger
	forwardURL string
	client     *http.Client
}

// New creates a Logger writing to stderr at the given level. Unknown levels
// fall back to info.
func New(level string) *Logger {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	return &Logger{
		log: log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Level:           parsed,
		}),
	}
}

// EnableForwarding configures the collector webhook. An empty URL leaves
// forwarding disabled.
func (l *Logger) EnableForwarding(url string, timeout time.Duration) {
	if url == "" {
		return
	}
	l.forwardURL = url
	l.client = &http.Client{Timeout: timeout}
}

// Event records one structured event with key/value details and forwards it
// if a collector is configured.
func (l *Logger) Event(event string, keyvals ...any) {
	l.log.Info(event, keyvals...)
	l.forward(event, keyvals)
}

// Debug records a low-priority event without forwarding it.
func (l *Logger) Debug(event string, keyvals ...any) {
	l.log.Debug(event, keyvals...)
}

// Fatal logs the event and exits. Reserved for startup failures.
func (l *Logger) Fatal(event string, keyvals ...any) {
	l.log.Fatal(event, keyvals...)
}

func (l *Logger) forward(event string, keyvals []any) {
	if l.forwardURL == "" {
		return
	}
	payload := map[string]any{
		"event":     event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for i := 0; i+1 < len(keyvals); i += 2 {
		payload[fmt.Sprint(keyvals[i])] = keyvals[i+1]
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	resp, err := l.client.Post(l.forwardURL, "application/json", bytes.NewReader(body))
	if err != nil {
		l.log.Debug("log_forward_failed", "error", err)
		return
	}
	resp.Body.Close()
}
