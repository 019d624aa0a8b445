package server

import (
	"context"
	"log/slog"

	"approvals/internal/middleware"
	"approvals/internal/models"
	"approvals/internal/notifications"
	"approvals/internal/workflow"
)

// Events are published only after the write committed, so subscribers never
// observe a transition that was rolled back.

func requestSummary(req *models.Request) map[string]interface{} {
	return map[string]interface{}{
		"id":           req.ID,
		"title":        req.Title,
		"status":       req.Status,
		"version":      req.Version,
		"requester_id": req.RequesterID,
		"college":      req.College,
	}
}

func (s *Server) publishRequestCreated(ctx context.Context, req *models.Request) {
	ev := notifications.Event{Type: notifications.EventRequestCreated, Payload: requestSummary(req)}
	s.publishToApprovers(ctx, req.Status, ev)
}

func (s *Server) publishRequestUpdated(ctx context.Context, req *models.Request) {
	ev := notifications.Event{Type: notifications.EventRequestUpdated, Payload: requestSummary(req)}
	s.publishToApprovers(ctx, req.Status, ev)
}

func (s *Server) publishRequestDeleted(ctx context.Context, requestID, requesterID uint) {
	ev := notifications.Event{
		Type:    notifications.EventRequestDeleted,
		Payload: map[string]interface{}{"id": requestID, "requester_id": requesterID},
	}
	if err := s.notifier.PublishBroadcast(ctx, ev); err != nil {
		s.logPublishError(ctx, ev, err)
	}
}

// publishRequestTransitioned tells the requester and every role that can act
// next about a committed transition.
func (s *Server) publishRequestTransitioned(ctx context.Context, req *models.Request) {
	payload := requestSummary(req)
	if last := req.LastEntry(); last != nil {
		payload["action"] = last.Action
		payload["actor_role"] = last.ActorRole
		if last.PreviousStatus != nil {
			payload["previous_status"] = *last.PreviousStatus
		}
	}
	ev := notifications.Event{Type: notifications.EventRequestTransitioned, Payload: payload}

	if err := s.notifier.PublishUser(ctx, req.RequesterID, ev); err != nil {
		s.logPublishError(ctx, ev, err)
	}
	s.publishToApprovers(ctx, req.Status, ev)
}

func (s *Server) publishToApprovers(ctx context.Context, status workflow.Status, ev notifications.Event) {
	for _, role := range workflow.RequiredApprovers(status) {
		if err := s.notifier.PublishRole(ctx, string(role), ev); err != nil {
			s.logPublishError(ctx, ev, err)
		}
	}
}

func (s *Server) logPublishError(ctx context.Context, ev notifications.Event, err error) {
	middleware.Logger.WarnContext(ctx, "failed to publish event",
		slog.String("event", ev.Type),
		slog.String("error", err.Error()))
}

// logEvent records every event seen on the bus, which gives operators a feed
// of workflow activity across instances.
func (s *Server) logEvent(channel string, ev notifications.Event) {
	middleware.Logger.Info("workflow event",
		slog.String("channel", channel),
		slog.String("event", ev.Type),
		slog.Any("request_id", ev.Payload["id"]))
}
