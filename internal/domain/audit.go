package domain

import "time"

// Audit event types recorded by the security core.
const (
	AuditTokenIssued     = "token.issued"
	AuditTokenRedeemed   = "token.redeemed"
	AuditTokenRejected   = "token.rejected"
	AuditCsrfRejected    = "csrf.rejected"
	AuditRateLimited     = "ratelimit.denied"
	AuditCutoverPromoted = "cutover.promoted"
	AuditLoginSuccess    = "login.success"
	AuditLoginFailure    = "login.failure"
)

// AuditEvent is a best-effort security audit record. Writes are
// fire-and-forget: a failed write is logged and never fails the request.
// PK: event_id (ULID, time-sortable).
type AuditEvent struct {
	EventID   string            `json:"event_id" dynamodbav:"event_id"`
	Type      string            `json:"type" dynamodbav:"type"`
	Subject   string            `json:"subject,omitempty" dynamodbav:"subject"`
	Detail    map[string]string `json:"detail,omitempty" dynamodbav:"detail"`
	CreatedAt time.Time         `json:"created_at" dynamodbav:"created_at"`
}
