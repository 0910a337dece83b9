package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"cashup/internal/reconciliation/application"
)

const (
	defaultKeyPrefix = "cashup:draft:"
	defaultDraftTTL  = 72 * time.Hour
)

// Autosave stores drafts as JSON strings with a TTL.
type Autosave struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures the store.
type Option func(*Autosave)

// WithKeyPrefix overrides the key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(a *Autosave) {
		if prefix != "" {
			a.prefix = prefix
		}
	}
}

// WithTTL overrides how long an untouched draft survives. Zero keeps drafts
// forever.
func WithTTL(ttl time.Duration) Option {
	return func(a *Autosave) {
		if ttl >= 0 {
			a.ttl = ttl
		}
	}
}

// NewAutosave constructs a redis-backed autosave store.
func NewAutosave(client redis.UniversalClient, opts ...Option) (*Autosave, error) {
	if client == nil {
		return nil, errors.New("redis autosave: nil client")
	}
	a := &Autosave{client: client, prefix: defaultKeyPrefix, ttl: defaultDraftTTL}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Get returns the draft stored under key, or nil.
func (a *Autosave) Get(ctx context.Context, key string) (*application.Draft, error) {
	val, err := a.client.Get(ctx, a.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var draft application.Draft
	if err := json.Unmarshal(val, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// Set stores draft under key and refreshes its TTL.
func (a *Autosave) Set(ctx context.Context, key string, draft application.Draft) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return a.client.Set(ctx, a.prefix+key, payload, a.ttl).Err()
}

// Clear removes key.
func (a *Autosave) Clear(ctx context.Context, key string) error {
	return a.client.Del(ctx, a.prefix+key).Err()
}
