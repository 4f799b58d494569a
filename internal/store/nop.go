package store

import (
	"context"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
)

// NopCounterCache always misses. Used when Redis is disabled.
type NopCounterCache struct{}

func (NopCounterCache) GetCounters(context.Context, string) (domain.Counters, bool, error) {
	return domain.Counters{}, false, nil
}
func (NopCounterCache) SetCounters(context.Context, string, domain.Counters) error { return nil }
func (NopCounterCache) DeleteCounters(context.Context, string) error               { return nil }
func (NopCounterCache) RecordAccess(context.Context, string) error                 { return nil }
func (NopCounterCache) GetTopHotKeys(context.Context, int64) ([]string, error)     { return nil, nil }
func (NopCounterCache) ResetHotKeyScores(context.Context) error                    { return nil }

var _ CounterCache = NopCounterCache{}
