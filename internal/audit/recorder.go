package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/geogate/internal/infrastructure/logging"
)

// Publisher forwards security events to an external bus (MQTT in production).
type Publisher interface {
	PublishSecurityEvent(action string, payload []byte) error
}

// Recorder persists entries and mirrors them to an optional Publisher.
//
// Recording is best-effort: failures are logged and never returned, so a
// broken audit sink cannot change the outcome of the request being audited.
type Recorder struct {
	repo      Repository
	publisher Publisher
	logger    *logging.Logger
	now       func() time.Time
}

// NewRecorder creates a Recorder. repo and publisher may each be nil.
func NewRecorder(repo Repository, publisher Publisher, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With("component", "audit"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record stores and publishes one event.
func (r *Recorder) Record(ctx context.Context, action, username string, details map[string]any) {
	if r == nil {
		return
	}

	entry := &Entry{
		Action:    action,
		Username:  username,
		Source:    "api",
		Details:   details,
		CreatedAt: r.now(),
	}

	if r.repo != nil {
		if err := r.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
			r.logger.Warn("audit write failed", "action", action, "error", err)
		}
	}

	if r.publisher != nil {
		payload, err := json.Marshal(entry)
		if err != nil {
			r.logger.Warn("audit encode failed", "action", action, "error", err)
			return
		}
		if err := r.publisher.PublishSecurityEvent(action, payload); err != nil {
			r.logger.Debug("audit publish failed", "action", action, "error", err)
		}
	}
}
