// Package storage is the persistent key-value bridge shared by every
// running client process. Values are JSON encoded; reads never fail
// (they fall back) and writes never propagate errors to callers.
package storage

import (
	"encoding/json"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Bridge wraps a Backend with JSON (de)serialization and change
// notification for writes made by other processes.
type Bridge struct {
	backend    Backend
	instanceID string
	log        zerolog.Logger

	mu     sync.Mutex
	subs   map[string]map[int]func(key string)
	nextID int
}

// NewBridge creates a bridge over backend. Each bridge gets its own
// instance id so its writes can be told apart from other processes'.
func NewBridge(backend Backend, log zerolog.Logger) *Bridge {
	return &Bridge{
		backend:    backend,
		instanceID: ulid.Make().String(),
		log:        log.With().Str("component", "storage").Logger(),
		subs:       make(map[string]map[int]func(string)),
	}
}

// InstanceID identifies this bridge as a writer
func (b *Bridge) InstanceID() string {
	return b.instanceID
}

// Read returns the stored value for key decoded as T, or fallback when
// the key is absent, unparsable, or the backend fails.
func Read[T any](b *Bridge, key string, fallback T) T {
	entry, ok, err := b.backend.Get(key)
	if err != nil {
		b.log.Warn().Err(err).Str("key", key).Msg("Storage read failed, using fallback")
		return fallback
	}
	if !ok {
		return fallback
	}

	var v T
	if err := json.Unmarshal(entry.Value, &v); err != nil {
		b.log.Warn().Err(err).Str("key", key).Msg("Stored value is not valid JSON, using fallback")
		return fallback
	}
	return v
}

// Write stores value under key. Failures are logged and swallowed.
func (b *Bridge) Write(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		b.log.Error().Err(err).Str("key", key).Msg("Failed to encode value for storage")
		return
	}
	if err := b.backend.Put(key, data, b.instanceID); err != nil {
		b.log.Error().Err(err).Str("key", key).Msg("Storage write failed")
	}
}

// Remove deletes key. Failures are logged and swallowed.
func (b *Bridge) Remove(key string) {
	if err := b.backend.Delete(key, b.instanceID); err != nil {
		b.log.Error().Err(err).Str("key", key).Msg("Storage delete failed")
	}
}

// Keys returns the live keys starting with prefix
func (b *Bridge) Keys(prefix string) []string {
	entries, err := b.backend.List(prefix)
	if err != nil {
		b.log.Warn().Err(err).Str("prefix", prefix).Msg("Storage list failed")
		return nil
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Deleted {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// RemovePrefix deletes every key matching any of the prefixes and
// returns how many were removed. The key set is discovered by scanning,
// not enumerated by the caller.
func (b *Bridge) RemovePrefix(prefixes ...string) int {
	removed := 0
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		for _, key := range b.Keys(prefix) {
			if err := b.backend.Delete(key, b.instanceID); err != nil {
				b.log.Error().Err(err).Str("key", key).Msg("Storage delete failed")
				continue
			}
			removed++
		}
	}
	return removed
}

// Subscribe registers fn to run when another process changes key. fn
// receives only the key; callers re-read with their own fallback.
func (b *Bridge) Subscribe(key string, fn func(key string)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.subs[key] == nil {
		b.subs[key] = make(map[int]func(string))
	}
	b.subs[key][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[key], id)
	}
}

// notifyExternal runs the subscribers of key. Called by the Watcher only.
func (b *Bridge) notifyExternal(key string) {
	b.mu.Lock()
	fns := make([]func(string), 0, len(b.subs[key]))
	for _, fn := range b.subs[key] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

// Close releases the backend
func (b *Bridge) Close() error {
	return b.backend.Close()
}
