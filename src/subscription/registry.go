// Package subscription implements the Subscription Registry (C9): an
// in-process, scope-sharded map of local subscribers, mirroring the
// teacher's per-bucket sync.RWMutex sharding of heartbeat cancellations
// (services/presence/service.go's heartbeats type) applied here to
// scope→sink fan-out instead of userId:sessionId cancellation.
package subscription

import (
	"chat/src/domain/event"
	"sync"

	"github.com/samber/lo"
)

// Sink receives events for a scope this connection subscribes to. Delivery
// is non-blocking and best-effort: a backpressured sink drops the event.
type Sink interface {
	ConnectionId() string
	Deliver(evt event.ChatEvent) (delivered bool)
}

const shardCount = 32

type shard struct {
	mutex sync.RWMutex
	// scopeId -> connectionId -> Sink
	sinks map[string]map[string]Sink
}

type Registry struct {
	shards [shardCount]*shard
}

func New() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{sinks: make(map[string]map[string]Sink)}
	}
	return r
}

func (r *Registry) shardFor(scopeId string) *shard {
	return r.shards[fnv32(scopeId)%shardCount]
}

// Subscribe implements C9's subscribe(connectionId, scopeId, sink):
// idempotent, multiple joins from the same connection coalesce.
func (r *Registry) Subscribe(scopeId string, sink Sink) {
	s := r.shardFor(scopeId)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	byConnection, ok := s.sinks[scopeId]
	if !ok {
		byConnection = make(map[string]Sink)
		s.sinks[scopeId] = byConnection
	}
	byConnection[sink.ConnectionId()] = sink
}

// Unsubscribe implements C9's unsubscribe(connectionId, scopeId).
func (r *Registry) Unsubscribe(scopeId, connectionId string) {
	s := r.shardFor(scopeId)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	byConnection, ok := s.sinks[scopeId]
	if !ok {
		return
	}
	delete(byConnection, connectionId)
	if len(byConnection) == 0 {
		delete(s.sinks, scopeId)
	}
}

// DropConnection implements C9's dropConnection(connectionId): remove from
// every scope the connection had joined.
func (r *Registry) DropConnection(connectionId string, scopeIds []string) {
	uniqueScopeIds := lo.Uniq(scopeIds)
	for _, scopeId := range uniqueScopeIds {
		r.Unsubscribe(scopeId, connectionId)
	}
}

// Deliver implements C9's deliver(scopeId, event): iterate sinks, each
// delivery bounded by a non-blocking send. Per-sink failures are dropped,
// not propagated — delivery to one subscriber never fails the batch.
func (r *Registry) Deliver(scopeId string, evt event.ChatEvent) (delivered, dropped int) {
	s := r.shardFor(scopeId)

	s.mutex.RLock()
	byConnection, ok := s.sinks[scopeId]
	if !ok {
		s.mutex.RUnlock()
		return 0, 0
	}
	targets := make([]Sink, 0, len(byConnection))
	for _, sink := range byConnection {
		targets = append(targets, sink)
	}
	s.mutex.RUnlock()

	for _, sink := range targets {
		if sink.Deliver(evt) {
			delivered++
		} else {
			dropped++
		}
	}
	return delivered, dropped
}

func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	hash := uint32(offset32)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= prime32
	}
	return hash
}
