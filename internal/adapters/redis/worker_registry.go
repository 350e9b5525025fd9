// Package redis provides Redis-backed adapters for queuectl.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/queuectl/internal/core"
	"github.com/target/queuectl/internal/domain/model"
)

const (
	defaultPrefix = "queuectl:"
	// slotTag pins every registry key to one cluster hash slot so MGET and
	// MULTI across the index and worker keys never hit CROSSSLOT.
	slotTag = "{workers}"
	// DefaultWorkerTTL is how long a worker stays listed without a heartbeat.
	DefaultWorkerTTL = 30 * time.Second
)

// WorkerRegistryOptions configures a WorkerRegistry.
type WorkerRegistryOptions struct {
	Prefix string
	TTL    time.Duration
}

// WorkerRegistry keeps one expiring key per worker plus a set indexing the ids.
// A worker that stops heartbeating drops out when its key expires; List prunes
// the stale set members it finds.
type WorkerRegistry struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ core.WorkerRegistry = (*WorkerRegistry)(nil)

// NewWorkerRegistry creates a WorkerRegistry on client.
func NewWorkerRegistry(client redis.UniversalClient, opts WorkerRegistryOptions) *WorkerRegistry {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultWorkerTTL
	}
	return &WorkerRegistry{client: client, prefix: prefix, ttl: ttl}
}

// TTL returns the expiry applied on every heartbeat.
func (r *WorkerRegistry) TTL() time.Duration { return r.ttl }

func (r *WorkerRegistry) indexKey() string { return r.prefix + slotTag }

func (r *WorkerRegistry) workerKey(id string) string { return r.prefix + slotTag + ":" + id }

// Register adds the worker to the index and writes its first heartbeat.
func (r *WorkerRegistry) Register(ctx context.Context, info model.WorkerInfo) error {
	if info.ID == "" {
		return errors.New("worker ID cannot be empty")
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal worker: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, r.indexKey(), info.ID)
		p.Set(ctx, r.workerKey(info.ID), data, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis register worker: %w", err)
	}
	return nil
}

// Heartbeat refreshes the worker record and its expiry.
func (r *WorkerRegistry) Heartbeat(ctx context.Context, info model.WorkerInfo) error {
	return r.Register(ctx, info)
}

// Deregister removes the worker immediately.
func (r *WorkerRegistry) Deregister(ctx context.Context, workerID string) error {
	if workerID == "" {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SRem(ctx, r.indexKey(), workerID)
		p.Del(ctx, r.workerKey(workerID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis deregister worker: %w", err)
	}
	return nil
}

// List returns the live workers ordered by start time.
func (r *WorkerRegistry) List(ctx context.Context) ([]model.WorkerInfo, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list workers: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.workerKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get workers: %w", err)
	}

	workers := make([]model.WorkerInfo, 0, len(values))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var info model.WorkerInfo
		if uerr := json.Unmarshal([]byte(raw), &info); uerr != nil {
			return nil, fmt.Errorf("unmarshal worker %s: %w", ids[i], uerr)
		}
		workers = append(workers, info)
	}

	if len(stale) > 0 {
		if serr := r.client.SRem(ctx, r.indexKey(), stale...).Err(); serr != nil {
			return nil, fmt.Errorf("redis prune workers: %w", serr)
		}
	}

	sort.Slice(workers, func(i, j int) bool {
		if workers[i].StartedAt.Equal(workers[j].StartedAt) {
			return workers[i].ID < workers[j].ID
		}
		return workers[i].StartedAt.Before(workers[j].StartedAt)
	})
	return workers, nil
}
