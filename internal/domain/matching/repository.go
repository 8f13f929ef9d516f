package matching

import (
	"context"
	"encoding/json"
	"time"
)

// CorpusRepository reads corpus items and the active language context from
// the backing store.
type CorpusRepository interface {
	ListItems(ctx context.Context) ([]CorpusItem, error)
	ActiveLanguageContext(ctx context.Context) (*LanguageContext, error)
}

// InboundRepository persists scoring transactions. AppendFeedback must run
// the read-modify-write inside one transaction so concurrent submissions for
// the same id never lose a write, and must upgrade a legacy single-object
// feedback value to a list before appending.
type InboundRepository interface {
	Insert(ctx context.Context, rec InboundRecord) (int64, error)
	Get(ctx context.Context, id int64) (InboundRecord, bool, error)
	AppendFeedback(ctx context.Context, id int64, feedback json.RawMessage) error
	ListSince(ctx context.Context, since time.Time, limit int) ([]InboundRecord, error)
	Ping(ctx context.Context) error
}

// ResultCache is a read-through cache of stored inbound records used by page
// fetches, so replaying pages does not cost a database read each time.
type ResultCache interface {
	Get(ctx context.Context, id int64) (InboundRecord, bool, error)
	Set(ctx context.Context, rec InboundRecord, ttl time.Duration) error
	Invalidate(ctx context.Context, id int64) error
}

// Archive receives exported inbound history for offline analysis.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
