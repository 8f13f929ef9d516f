package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/helpline/faqmatch/internal/domain/matching"
)

// ValkeyCache keeps recently paged inbound records in a Valkey-compatible
// database so page replays skip the relational read.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs a cache backed by Valkey.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "inbound"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

func (c *ValkeyCache) Get(ctx context.Context, id int64) (matching.InboundRecord, bool, error) {
	cmd := c.client.B().Get().Key(c.key(id)).Build()
	payload, err := c.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return matching.InboundRecord{}, false, nil
		}
		return matching.InboundRecord{}, false, err
	}
	var rec matching.InboundRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return matching.InboundRecord{}, false, err
	}
	return rec, true, nil
}

func (c *ValkeyCache) Set(ctx context.Context, rec matching.InboundRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	builder := c.client.B().Set().Key(c.key(rec.ID)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

func (c *ValkeyCache) Invalidate(ctx context.Context, id int64) error {
	return c.client.Do(ctx, c.client.B().Del().Key(c.key(id)).Build()).Error()
}

func (c *ValkeyCache) key(id int64) string {
	return fmt.Sprintf("%s:%d", c.prefix, id)
}

var _ matching.ResultCache = (*ValkeyCache)(nil)
