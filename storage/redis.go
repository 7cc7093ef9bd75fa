//go:build !wasm

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	// Prefix namespaces every key and the change channel.
	// Default: "groundhogg:"
	Prefix string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisConfigFromEnv reads REDIS_HOST, REDIS_PORT, REDIS_PASSWORD,
// REDIS_DB and GROUNDHOGG_REDIS_PREFIX.
func NewRedisConfigFromEnv() (*RedisConfig, error) {
	port, err := strconv.Atoi(getEnvOrDefault("REDIS_PORT", "6379"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	db, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	return &RedisConfig{
		Host:         getEnvOrDefault("REDIS_HOST", "localhost"),
		Port:         port,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           db,
		Prefix:       getEnvOrDefault("GROUNDHOGG_REDIS_PREFIX", "groundhogg:"),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}, nil
}

// Address returns the Redis server address.
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Redis is a Backend that keeps values in Redis and announces writes on a
// pub/sub channel, so sessions on different hosts stay in sync.
type Redis struct {
	client *redis.Client
	prefix string
	origin string

	mu     sync.Mutex
	pubsub *redis.PubSub
	subs   map[int]func(Change)
	nextID int
	closed bool
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(config *RedisConfig) (*Redis, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Address(),
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisFromClient(client, config.Prefix), nil
}

// NewRedisFromClient wraps an existing go-redis client.
func NewRedisFromClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "groundhogg:"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		origin: uuid.NewString(),
		subs:   make(map[int]func(Change)),
	}
}

// Channel returns the pub/sub channel carrying change notifications.
func (r *Redis) Channel() string {
	return r.prefix + "changes"
}

// Origin identifies this Redis value in published changes.
func (r *Redis) Origin() string {
	return r.origin
}

// Get retrieves key.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores key without expiry and publishes the change.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	payload, err := json.Marshal(Change{Key: key, Value: value, Origin: r.origin})
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", key, err)
	}
	return nil
}

// Subscribe registers fn for changes published by other Redis backends
// using the same prefix. Writes made through r itself are not reported.
func (r *Redis) Subscribe(fn func(Change)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.pubsub == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ps := r.client.Subscribe(ctx, r.Channel())
		// Wait for the subscription confirmation so no publish is missed.
		if _, err := ps.Receive(ctx); err != nil {
			ps.Close()
			return nil, fmt.Errorf("redis subscribe: %w", err)
		}
		r.pubsub = ps
		go r.listen(ps)
	}

	id := r.nextID
	r.nextID++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}, nil
}

func (r *Redis) listen(ps *redis.PubSub) {
	for msg := range ps.Channel() {
		r.deliver(msg.Payload)
	}
}

// deliver decodes one published change and fans it out, dropping echoes of
// r's own writes.
func (r *Redis) deliver(payload string) {
	var change Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return
	}
	if change.Origin == r.origin {
		return
	}

	r.mu.Lock()
	subs := make([]func(Change), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
}

// Close closes the subscription and the client.
func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if r.pubsub != nil {
		r.pubsub.Close()
	}
	return r.client.Close()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
