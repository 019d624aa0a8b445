package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"approvals/internal/middleware"
	"approvals/internal/models"
	"approvals/internal/repository"
)

// recordAudit writes an audit row. Failures are logged and never fail the
// caller, whose change is already committed.
func recordAudit(ctx context.Context, repo repository.AuditRepository, actor Actor, requestID uint, action string, details map[string]interface{}) {
	if repo == nil {
		return
	}
	raw, err := json.Marshal(details)
	if err != nil {
		raw = []byte("{}")
	}
	id := requestID
	entry := &models.AuditLog{
		RequestID: &id,
		UserID:    actor.ID,
		Action:    action,
		Details:   string(raw),
		IPAddress: actor.IP,
	}
	if err := repo.Create(ctx, entry); err != nil {
		middleware.Logger.WarnContext(ctx, "audit write failed",
			slog.String("action", action),
			slog.Uint64("request_id", uint64(requestID)),
			slog.String("error", err.Error()),
		)
	}
}
