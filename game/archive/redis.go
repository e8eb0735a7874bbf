package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/kalah-game/game/service"
	"github.com/zeromicro/go-zero/core/stores/redis"
)

const (
	DefaultKeyPrefix = "kalah:board:"

	// DefaultEntryTTL is added to a board list's expiry for every entry
	DefaultEntryTTL = 120 * time.Second
)

// ListStore is the subset of *redis.Redis the recorder needs
type ListStore interface {
	Lpush(key string, values ...any) (int, error)
	Llen(key string) (int, error)
	Expire(key string, seconds int) error
}

var (
	_ ListStore        = (*redis.Redis)(nil)
	_ service.Recorder = (*RedisRecorder)(nil)
)

// RedisRecorder pushes events onto one Redis list per board
type RedisRecorder struct {
	store     ListStore
	pusher    *Pusher[Message]
	keyPrefix string
	entryTTL  time.Duration
	now       func() time.Time
}

// RedisOption configures a RedisRecorder
type RedisOption func(*RedisRecorder)

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisRecorder) {
		r.keyPrefix = prefix
	}
}

func WithEntryTTL(ttl time.Duration) RedisOption {
	return func(r *RedisRecorder) {
		r.entryTTL = ttl
	}
}

// WithFlushInterval sets how often buffered events are pushed
func WithFlushInterval(interval time.Duration) RedisOption {
	return func(r *RedisRecorder) {
		r.pusher.PushInterval = interval
	}
}

func WithRedisClock(now func() time.Time) RedisOption {
	return func(r *RedisRecorder) {
		r.now = now
	}
}

// NewRedisRecorder connects to host and starts flushing events
func NewRedisRecorder(host, pass string, options ...RedisOption) *RedisRecorder {
	client := redis.MustNewRedis(redis.RedisConf{
		Host: host,
		Type: redis.NodeType,
		Pass: pass,
	})
	r := NewRedisRecorderWithStore(client, options...)
	r.Start()
	return r
}

// NewRedisRecorderWithStore builds a recorder on an existing store. Call
// Start to flush in the background, or Flush to push by hand.
func NewRedisRecorderWithStore(store ListStore, options ...RedisOption) *RedisRecorder {
	r := &RedisRecorder{
		store:     store,
		keyPrefix: DefaultKeyPrefix,
		entryTTL:  DefaultEntryTTL,
		now:       time.Now,
	}
	r.pusher = NewPusher(
		WithPushLogic(r.push),
		WithErrorHandler[Message](func(err error) {
			log.Warn().Err(err).Msg("failed to push game events to redis")
		}),
	)
	for _, option := range options {
		option(r)
	}
	return r
}

// Key returns the list key for a board
func (r *RedisRecorder) Key(boardID string) string {
	return r.keyPrefix + boardID
}

func (r *RedisRecorder) RecordStart(ctx context.Context, game *service.Game) error {
	r.pusher.AddMessages(startMessage(game, r.now()))
	return nil
}

func (r *RedisRecorder) RecordMove(ctx context.Context, game *service.Game, move service.MoveInfo) error {
	r.pusher.AddMessages(moveMessage(game, move, r.now()))
	return nil
}

func (r *RedisRecorder) RecordEnd(ctx context.Context, game *service.Game) error {
	r.pusher.AddMessages(endMessage(game, r.now()))
	return nil
}

func (r *RedisRecorder) Start() {
	r.pusher.Start()
}

// Flush pushes buffered events now
func (r *RedisRecorder) Flush() error {
	return r.pusher.PushAll()
}

// Close stops the background flush and pushes what is left
func (r *RedisRecorder) Close() error {
	return r.pusher.Stop()
}

// push groups a batch by board, keeping event order within each list
func (r *RedisRecorder) push(messages ...Message) error {
	var keys []string
	grouped := make(map[string][]any)
	for _, m := range messages {
		key := r.Key(m.BoardID)
		if _, ok := grouped[key]; !ok {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], m.String())
	}

	for _, key := range keys {
		if _, err := r.store.Lpush(key, grouped[key]...); err != nil {
			return fmt.Errorf("lpush %s: %w", key, err)
		}

		length, err := r.store.Llen(key)
		if err != nil {
			return fmt.Errorf("llen %s: %w", key, err)
		}
		if err := r.store.Expire(key, int(r.entryTTL.Seconds())*length); err != nil {
			return fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return nil
}
