package service

import (
	"context"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/consumer"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/repository"
	pkglog "github.com/weiawesome/wes-io-live/follow-graph-service/pkg/log"
)

// ProfileSync keeps the graph's copy of display data in step with
// user-service by applying its users table CDC stream.
type ProfileSync struct {
	users repository.UserRepository
}

// NewProfileSync creates a CDC handler writing through users.
func NewProfileSync(users repository.UserRepository) *ProfileSync {
	return &ProfileSync{users: users}
}

// HandleCDCEvent applies one Debezium change of a user row.
func (p *ProfileSync) HandleCDCEvent(ctx context.Context, event *consumer.DebeziumMessage) error {
	l := pkglog.Ctx(ctx)
	op := event.Payload.Op

	switch op {
	case "r", "c", "u":
		after := event.Payload.After
		if after == nil {
			l.Warn().Str("op", op).Msg("CDC event missing 'after' field")
			return nil
		}
		if after.ID == "" {
			l.Warn().Str("op", op).Msg("CDC event without user id")
			return nil
		}
		if after.DeletedAt != nil {
			// Deleted accounts keep their graph rows; user-service owns account removal.
			l.Info().Str(pkglog.FieldUserID, after.ID).Msg("user soft-deleted upstream, profile left as is")
			return nil
		}
		return p.apply(ctx, after)

	case "d":
		l.Info().Msg("user hard-deleted upstream, profile left as is")
		return nil

	default:
		l.Warn().Str("op", op).Msg("unknown CDC operation, skipping")
		return nil
	}
}

func (p *ProfileSync) apply(ctx context.Context, rec *consumer.DebeziumUserRecord) error {
	l := pkglog.Ctx(ctx)

	name := rec.DisplayName
	if name == "" {
		name = rec.Username
	}
	var photo string
	if rec.AvatarURL != nil {
		photo = *rec.AvatarURL
	}

	var accountType domain.AccountType
	if rec.AccountType != nil {
		accountType = domain.AccountType(*rec.AccountType)
		if !accountType.Valid() {
			l.Warn().Str(pkglog.FieldUserID, rec.ID).Str("account_type", *rec.AccountType).Msg("ignoring unknown account type")
			accountType = ""
		}
	}

	if err := p.users.UpsertProfile(ctx, rec.ID, name, photo, accountType); err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, rec.ID).Msg("failed to sync user profile")
		return err
	}
	return nil
}

// Ensure interface is satisfied at compile time.
var _ consumer.CDCEventHandler = (*ProfileSync)(nil)
