package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Outbox decouples intent producers from notification delivery.
// Enqueue must return quickly and never block on downstream delivery.
type Outbox interface {
	Enqueue(ctx context.Context, intent Intent) error
	// Dequeue blocks until an intent is available or ctx is done.
	Dequeue(ctx context.Context) (Intent, error)
}

// MemoryOutbox is a bounded in-process outbox. When the buffer is full,
// Enqueue drops the intent with ErrOutboxFull rather than blocking the
// request path.
type MemoryOutbox struct {
	ch        chan Intent
	closeOnce sync.Once
	done      chan struct{}
}

// NewMemoryOutbox creates an outbox buffering up to size intents.
func NewMemoryOutbox(size int) *MemoryOutbox {
	if size <= 0 {
		size = 64
	}
	return &MemoryOutbox{
		ch:   make(chan Intent, size),
		done: make(chan struct{}),
	}
}

func (o *MemoryOutbox) Enqueue(ctx context.Context, intent Intent) error {
	select {
	case <-o.done:
		return ErrOutboxClosed
	default:
	}

	select {
	case o.ch <- intent:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (o *MemoryOutbox) Dequeue(ctx context.Context) (Intent, error) {
	select {
	case intent := <-o.ch:
		return intent, nil
	case <-o.done:
		// Drain what was enqueued before close.
		select {
		case intent := <-o.ch:
			return intent, nil
		default:
			return Intent{}, ErrOutboxClosed
		}
	case <-ctx.Done():
		return Intent{}, ctx.Err()
	}
}

// Close stops the outbox. Subsequent Enqueue calls fail with ErrOutboxClosed.
func (o *MemoryOutbox) Close() error {
	o.closeOnce.Do(func() { close(o.done) })
	return nil
}

// RedisConfig configures the redis-backed outbox.
type RedisConfig struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
	Key            string        `env:"NOTIFY_OUTBOX_KEY" envDefault:"filevault:notify:outbox"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// RedisOutbox stores intents in a redis list so they survive restarts and
// can be drained by a separate delivery process.
type RedisOutbox struct {
	client *redis.Client
	key    string
}

// NewRedisOutbox connects to redis and returns a list-backed outbox.
// Connection attempts are retried per the config before giving up.
func NewRedisOutbox(ctx context.Context, cfg RedisConfig) (*RedisOutbox, error) {
	if cfg.ConnectionURL == "" || cfg.Key == "" {
		return nil, ErrInvalidConfig
	}

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var client *redis.Client
	for i := 0; i < attempts; i++ {
		client = redis.NewClient(opt)
		if err = client.Ping(connectCtx).Err(); err == nil {
			return &RedisOutbox{client: client, key: cfg.Key}, nil
		}
		_ = client.Close()

		select {
		case <-connectCtx.Done():
			return nil, errors.Join(ErrInvalidConfig, connectCtx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrInvalidConfig, err)
}

// NewRedisOutboxWithClient wraps an existing client. Useful for tests.
func NewRedisOutboxWithClient(client *redis.Client, key string) (*RedisOutbox, error) {
	if client == nil || key == "" {
		return nil, ErrInvalidConfig
	}
	return &RedisOutbox{client: client, key: key}, nil
}

func (o *RedisOutbox) Enqueue(ctx context.Context, intent Intent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	if err := o.client.LPush(ctx, o.key, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	return nil
}

func (o *RedisOutbox) Dequeue(ctx context.Context) (Intent, error) {
	for {
		// Bounded block so ctx cancellation is observed between polls.
		res, err := o.client.BRPop(ctx, time.Second, o.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				select {
				case <-ctx.Done():
					return Intent{}, ctx.Err()
				default:
					continue
				}
			}
			if ctx.Err() != nil {
				return Intent{}, ctx.Err()
			}
			return Intent{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
		}

		var intent Intent
		if err := json.Unmarshal([]byte(res[1]), &intent); err != nil {
			return Intent{}, fmt.Errorf("failed to unmarshal intent: %w", err)
		}
		return intent, nil
	}
}

// Close releases the redis client.
func (o *RedisOutbox) Close() error {
	return o.client.Close()
}
