package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/solace-api/internal/domain"
	"github.com/solace-api/internal/pkg/id"
)

// Store is the minimal persistence interface the recorder needs.
type Store interface {
	Put(ctx context.Context, e *domain.AuditEvent) error
}

// Recorder writes security audit events best-effort: a failed write is
// logged at WARN and never fails the surrounding request. A nil *Recorder
// is valid and records nothing, so wiring it is optional.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record persists one event. Safe on a nil receiver.
func (r *Recorder) Record(ctx context.Context, eventType, subject string, detail map[string]string) {
	if r == nil || r.store == nil {
		return
	}
	e := &domain.AuditEvent{
		EventID:   id.New(),
		Type:      eventType,
		Subject:   subject,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Put(ctx, e); err != nil {
		slog.Warn("audit write failed", "type", eventType, "err", err)
	}
}
