package service

import (
	"context"

	pkglog "github.com/weiawesome/wes-io-live/follow-graph-service/pkg/log"
)

// LogConsistency records divergence under its own log type so it can be
// alerted on apart from request errors.
func LogConsistency(ctx context.Context, e *PartialConsistencyError) {
	l := pkglog.Ctx(ctx)
	ev := l.Warn().
		Str(pkglog.FieldLogType, pkglog.LogTypeConsistency).
		Str(pkglog.FieldUserID, e.UserID).
		Str("scope", e.Scope).
		Str("field", e.Field).
		Int64("stored", e.Stored).
		Int64("actual", e.Actual)
	if e.OtherID != "" {
		ev = ev.Str(pkglog.FieldTargetID, e.OtherID)
	}
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	ev.Msg("partial consistency")
}
