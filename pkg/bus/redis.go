package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis-backed Bus.
type RedisOptions struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password is optional.
	Password string

	// DB selects the logical database.
	DB int
}

// Redis is a Bus backed by Redis pub/sub. Each envelope travels as one JSON
// message on the channel named by its Channel kind.
type Redis struct {
	rdb *redis.Client
}

// NewRedis creates a Redis-backed Bus and verifies connectivity.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("bus: redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Publish(ctx context.Context, ch Channel, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("bus: marshal envelope: %w", err)
	}
	if err := r.rdb.Publish(ctx, string(ch), payload).Err(); err != nil {
		return fmt.Errorf("bus: publish %s: %w", ch, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, channels ...Channel) (Subscription, error) {
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = string(ch)
	}
	ps := r.rdb.Subscribe(ctx, names...)

	// Wait for the subscription to be confirmed so no messages published
	// after this call are missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("bus: subscribe %v: %w", names, err)
	}

	sub := &redisSub{ps: ps, msgs: make(chan Message, 64)}
	go sub.recvLoop(ctx)
	return sub, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

type redisSub struct {
	ps   *redis.PubSub
	msgs chan Message
	once sync.Once
}

func (s *redisSub) recvLoop(ctx context.Context) {
	defer close(s.msgs)
	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				slog.Warn("bus: malformed payload, dropping", "channel", m.Channel, "err", err)
				continue
			}
			select {
			case s.msgs <- Message{Channel: Channel(m.Channel), Envelope: env}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *redisSub) Messages() <-chan Message {
	return s.msgs
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ps.Close()
	})
	return err
}
