package audit

import (
	"context"

	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/log"
)

// Audit actions for follow-graph-service.
const (
	ActionFollow        = "graph.follow"
	ActionUnfollow      = "graph.unfollow"
	ActionRequestFollow = "graph.follow_request"
	ActionAcceptRequest = "graph.follow_request_accept"
	ActionRejectRequest = "graph.follow_request_reject"
	ActionCancelRequest = "graph.follow_request_cancel"
	ActionUpdatePrivacy = "graph.update_privacy"
	ActionRepairCounter = "graph.repair_counter"
	ActionRepairMirror  = "graph.repair_reflection"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, userID, targetID, msg string) {
	l := log.Ctx(ctx)
	e := l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID)
	if targetID != "" {
		e = e.Str(log.FieldTargetID, targetID)
	}
	e.Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action, userID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
