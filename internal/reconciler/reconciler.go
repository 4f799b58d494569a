package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/audit"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/config"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/repository"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/service"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/store"
	pkglog "github.com/weiawesome/wes-io-live/follow-graph-service/pkg/log"
)

// Reconciler periodically checks the graph against its denormalized copies:
// edge reflections against their mirrors, stored counters against adjacency
// list sizes, and cached hot-key counters against the database.
type Reconciler struct {
	repo   repository.GraphRepository
	cache  store.CounterCache
	cfg    config.ReconcilerConfig
	quit   chan struct{}
	doneCh chan struct{}
}

// Report summarizes one pass.
type Report struct {
	Orphans          int
	RepairedOrphans  int
	Drifted          int
	RepairedCounters int
	HotKeys          int
}

// New creates a new Reconciler.
func New(repo repository.GraphRepository, cache store.CounterCache, cfg config.ReconcilerConfig) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 100
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Reconciler{
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		quit:   make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the reconciler in a background goroutine.
func (r *Reconciler) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop signals the reconciler to stop and returns immediately.
// Call Done() to wait for it to exit.
func (r *Reconciler) Stop() {
	close(r.quit)
}

// Done returns a channel that is closed when the reconciler has fully stopped.
func (r *Reconciler) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) {
	l := pkglog.Ctx(ctx)
	l.Info().Msg("reconciler: starting pass")

	report, err := r.RunOnce(ctx)
	if err != nil {
		l.Error().Err(err).Msg("reconciler: pass finished with errors")
	}
	l.Info().
		Int("orphans", report.Orphans).
		Int("repaired_orphans", report.RepairedOrphans).
		Int("drifted", report.Drifted).
		Int("repaired_counters", report.RepairedCounters).
		Int("hot_keys", report.HotKeys).
		Msg("reconciler: pass complete")
}

// RunOnce performs one full pass. Reflections are fixed before counters so
// the counter check sees the repaired lists. Per-item failures do not stop
// the pass; they are returned together.
func (r *Reconciler) RunOnce(ctx context.Context) (*Report, error) {
	report := &Report{}
	var result *multierror.Error

	if err := r.checkReflections(ctx, report); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.checkCounters(ctx, report); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.refreshHotKeys(ctx, report); err != nil {
		result = multierror.Append(result, err)
	}

	return report, result.ErrorOrNil()
}

func (r *Reconciler) checkReflections(ctx context.Context, report *Report) error {
	var result *multierror.Error
	edges := r.repo.Stores().Edges

	var afterID uint
	for {
		orphans, err := edges.ListOrphans(ctx, afterID, r.cfg.BatchSize)
		if err != nil {
			return multierror.Append(result, fmt.Errorf("list orphan reflections: %w", err))
		}

		for _, o := range orphans {
			afterID = o.ID
			report.Orphans++

			kind := domain.EdgeKind(o.Kind)
			service.LogConsistency(ctx, &service.PartialConsistencyError{
				UserID:  o.OtherID,
				OtherID: o.OwnerID,
				Scope:   service.ScopeReflection,
				Field:   string(kind.Mirror()),
				Stored:  0,
				Actual:  1,
			})

			if !r.cfg.Repair {
				continue
			}
			if err := r.repairOrphan(ctx, o); err != nil {
				result = multierror.Append(result, fmt.Errorf("repair reflection %d: %w", o.ID, err))
				continue
			}
			report.RepairedOrphans++
		}

		if len(orphans) < r.cfg.BatchSize {
			return result.ErrorOrNil()
		}
	}
}

// repairOrphan restores the missing mirror with the original timestamp. When
// the mirror's owner no longer exists the orphan is removed instead.
func (r *Reconciler) repairOrphan(ctx context.Context, o domain.FollowEdgeModel) error {
	kind := domain.EdgeKind(o.Kind)
	mirror := kind.Mirror()

	followerID, followeeID := o.OwnerID, o.OtherID
	if kind == domain.EdgeFollowers {
		followerID, followeeID = o.OtherID, o.OwnerID
	}

	return r.repo.WithTx(ctx, func(tx repository.Stores) error {
		stillOrphan, err := tx.Edges.Exists(ctx, o.OwnerID, kind, o.OtherID)
		if err != nil {
			return err
		}
		mirrored, err := tx.Edges.Exists(ctx, o.OtherID, mirror, o.OwnerID)
		if err != nil {
			return err
		}
		if !stillOrphan || mirrored {
			return nil
		}

		_, err = tx.Users.Get(ctx, o.OtherID)
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			if _, err := tx.Edges.Delete(ctx, o.OwnerID, kind, o.OtherID); err != nil {
				return err
			}
			audit.LogWithDetail(ctx, audit.ActionRepairMirror, o.OwnerID, "removed dangling "+o.Kind+" "+o.OtherID, "reconciler removed orphan reflection")
			return tx.Counters.ApplyDelta(ctx, o.OwnerID, kind, -1)
		case err != nil:
			return err
		}

		if err := tx.Edges.Put(ctx, o.OtherID, mirror, o.OwnerID, o.FollowedAt); err != nil {
			return err
		}
		if _, err := tx.Requests.Delete(ctx, followeeID, followerID); err != nil {
			return err
		}
		audit.LogWithDetail(ctx, audit.ActionRepairMirror, o.OtherID, "restored "+string(mirror)+" "+o.OwnerID, "reconciler restored missing reflection")
		return tx.Counters.ApplyDelta(ctx, o.OtherID, mirror, 1)
	})
}

func (r *Reconciler) checkCounters(ctx context.Context, report *Report) error {
	var result *multierror.Error
	users := r.repo.Stores().Users

	afterID := ""
	for {
		ids, err := users.ListIDs(ctx, afterID, r.cfg.BatchSize)
		if err != nil {
			return multierror.Append(result, fmt.Errorf("list users: %w", err))
		}

		for _, id := range ids {
			afterID = id
			drifted, repaired, err := r.checkUserCounters(ctx, id)
			report.Drifted += drifted
			report.RepairedCounters += repaired
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("check counters of %s: %w", id, err))
			}
		}

		if len(ids) < r.cfg.BatchSize {
			return result.ErrorOrNil()
		}
	}
}

// checkUserCounters compares both counters with the list sizes in one
// transaction and returns how many fields drifted and were repaired. The user
// row stays locked from the first read, and a repair recounts in the same
// statement that writes, so a concurrent follow is never lost.
func (r *Reconciler) checkUserCounters(ctx context.Context, userID string) (int, int, error) {
	drifted, repaired := 0, 0

	err := r.repo.WithTx(ctx, func(tx repository.Stores) error {
		drifted, repaired = 0, 0

		stored, err := tx.Counters.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		for _, field := range []domain.EdgeKind{domain.EdgeFollowers, domain.EdgeFollowing} {
			actual, err := tx.Edges.Count(ctx, userID, field)
			if err != nil {
				return err
			}
			have := stored.Followers
			if field == domain.EdgeFollowing {
				have = stored.Following
			}
			if have == actual {
				continue
			}

			drifted++
			service.LogConsistency(ctx, &service.PartialConsistencyError{
				UserID: userID,
				Scope:  service.ScopeCounter,
				Field:  string(field),
				Stored: have,
				Actual: actual,
			})
			if !r.cfg.Repair {
				continue
			}
			fixed, err := tx.Counters.Recount(ctx, userID, field)
			if err != nil {
				return err
			}
			audit.LogWithDetail(ctx, audit.ActionRepairCounter, userID, fmt.Sprintf("%s %d -> %d", field, have, fixed), "reconciler repaired counter")
			repaired++
		}
		return nil
	})
	if err != nil {
		return drifted, 0, err
	}

	if repaired > 0 {
		if err := r.cache.DeleteCounters(ctx, userID); err != nil {
			l := pkglog.Ctx(ctx)
			l.Warn().Err(err).Str(pkglog.FieldUserID, userID).Msg("reconciler: failed to drop cached counters")
		}
	}
	return drifted, repaired, nil
}

// refreshHotKeys rewrites the cached counters of the most read users from
// the database and starts a new scoring window.
func (r *Reconciler) refreshHotKeys(ctx context.Context, report *Report) error {
	l := pkglog.Ctx(ctx)

	userIDs, err := r.cache.GetTopHotKeys(ctx, int64(r.cfg.TopN))
	if err != nil {
		return fmt.Errorf("get top hot keys: %w", err)
	}
	if len(userIDs) == 0 {
		l.Debug().Msg("reconciler: no hot keys to refresh")
		return nil
	}

	var result *multierror.Error
	counters := r.repo.Stores().Counters
	for _, userID := range userIDs {
		c, err := counters.Get(ctx, userID)
		if errors.Is(err, repository.ErrUserNotFound) {
			continue
		}
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("get counters of %s: %w", userID, err))
			continue
		}
		if err := r.cache.SetCounters(ctx, userID, c); err != nil {
			result = multierror.Append(result, fmt.Errorf("cache counters of %s: %w", userID, err))
			continue
		}
		report.HotKeys++
	}

	if err := r.cache.ResetHotKeyScores(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("reset hot key scores: %w", err))
	}
	return result.ErrorOrNil()
}
