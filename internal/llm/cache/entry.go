package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-ptescore/internal/llm/transport"
)

// entry is the stored form of a completion. Headers and raw bodies are
// dropped to keep entries small.
type entry struct {
	Content            string                    `json:"content"`
	FinishReason       transport.FinishReason    `json:"finish_reason"`
	ProviderRequestIDs []string                  `json:"provider_request_ids,omitempty"`
	Usage              transport.NormalizedUsage `json:"usage"`
	StoredAtMs         int64                     `json:"stored_at_ms"`
}

func toEntry(resp *transport.Response, now time.Time) entry {
	return entry{
		Content:            resp.Content,
		FinishReason:       resp.FinishReason,
		ProviderRequestIDs: resp.ProviderRequestIDs,
		Usage:              resp.Usage,
		StoredAtMs:         now.UnixMilli(),
	}
}

func (e entry) toResponse() *transport.Response {
	return &transport.Response{
		Content:            e.Content,
		FinishReason:       e.FinishReason,
		ProviderRequestIDs: e.ProviderRequestIDs,
		Usage:              e.Usage,
		Cached:             true,
	}
}

// get returns redis.Nil for a miss. Corrupt entries are deleted and
// reported as misses.
func (c *Cache) get(ctx context.Context, key string) (*transport.Response, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Content == "" {
		c.logger.WarnContext(ctx, "discarding corrupt cache entry", "key", key)
		_ = c.client.Del(ctx, key).Err()
		return nil, redis.Nil
	}
	return e.toResponse(), nil
}

func (c *Cache) set(ctx context.Context, key string, resp *transport.Response) error {
	data, err := json.Marshal(toEntry(resp, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	return c.client.Set(writeCtx, key, data, c.ttl).Err()
}
