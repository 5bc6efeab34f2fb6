package notify

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

const channelPrefix = "resell:lots:"

// Redis fans announcements out over Redis pub/sub so every server process
// sharing the cloud store hears about writes made by the others.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr string, password string, db int) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Redis{client: client}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Publish(ctx context.Context, userID string) error {
	return r.client.Publish(ctx, channelPrefix+userID, "changed").Err()
}

// Subscribe returns once Redis has confirmed the subscription, so a
// Publish issued after it returns is never missed.
func (r *Redis) Subscribe(ctx context.Context, userID string) (<-chan struct{}, error) {
	ps := r.client.Subscribe(ctx, channelPrefix+userID)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", userID, err)
	}

	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
