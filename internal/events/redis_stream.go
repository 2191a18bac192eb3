package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// defaultStreamMaxLen bounds the stream so unread events do not grow forever.
const defaultStreamMaxLen = 1000

// RedisStreamPublisher appends events to a Redis stream. Consumers read it
// with XREAD or a consumer group.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, stream string) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: defaultStreamMaxLen}
}

func (p *RedisStreamPublisher) xaddArgs(event MetricsUpdated) (*redis.XAddArgs, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	// XADD stream MAXLEN ~ n * type <type> run_id <id> data <json>
	return &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":   event.Type,
			"run_id": event.RunID,
			"data":   string(data),
		},
	}, nil
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, event MetricsUpdated) error {
	args, err := p.xaddArgs(event)
	if err != nil {
		return err
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to add to stream %s: %w", p.stream, err)
	}
	return nil
}

// ReadEvent decodes the data field of a stream message.
func ReadEvent(msg redis.XMessage) (MetricsUpdated, error) {
	var event MetricsUpdated
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return event, fmt.Errorf("invalid message format: data field missing")
	}
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

// Close releases the client. The client is owned by the publisher.
func (p *RedisStreamPublisher) Close() {
	_ = p.client.Close()
}
