package ratelimit

import (
	"time"

	"github.com/bfscompany/portfoliobot/internal/events"
	"github.com/bfscompany/portfoliobot/internal/language"
	"github.com/bfscompany/portfoliobot/internal/session"
)

// Limiter throttles per-session requests with a sliding window over the
// timestamps recorded on the session state.
type Limiter struct {
	window time.Duration
	max    int
	logger *events.Logger
	now    func() time.Time
}

// New creates a Limiter. A max of zero or less disables limiting entirely.
func New(window time.Duration, max int, logger *events.Logger) *Limiter {
	return &Limiter{
		window: window,
		max:    max,
		logger: logger,
		now:    time.Now,
	}
}

// Check prunes the session's request timestamps to the current window and
// decides whether this request may proceed. A permitted request is recorded
// on the state (the caller persists it); a limited one is not, and the
// localized advisory is returned. A nil state is never limited and performs
// no bookkeeping.
func (l *Limiter) Check(sessionID string, state *session.State, languageCode string) (bool, string) {
	if l.max <= 0 || state == nil {
		return false, ""
	}

	now := l.now()
	kept := state.RequestTimestamps[:0]
	for _, ts := range state.RequestTimestamps {
		if now.Sub(ts) < l.window {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		state.RequestTimestamps = kept
		l.logger.Event("rate_limited",
			"session_id", sessionID,
			"count", len(kept),
			"window_seconds", int(l.window.Seconds()),
		)
		return true, Advisory(languageCode)
	}

	state.RequestTimestamps = append(kept, now)
	return false, ""
}

// Advisory returns the localized message shown when the limit triggers.
func Advisory(languageCode string) string {
	if languageCode == language.English {
		return "I'd love to keep chatting, but I can only respond to a few messages per minute per visitor. Please try again in a moment."
	}
	return "Jeg svarer gjerne, men jeg er begrenset til noen få meldinger per minutt per besøkende. Prøv igjen om et lite øyeblikk."
}
