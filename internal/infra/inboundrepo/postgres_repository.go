package inboundrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpline/faqmatch/internal/domain/matching"
)

// PostgresRepository implements matching.InboundRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Insert persists a new scoring transaction and returns its id.
func (r *PostgresRepository) Insert(ctx context.Context, rec matching.InboundRecord) (int64, error) {
	scoring, err := json.Marshal(rec.Scoring)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO inbounds (
			feedback_secret_key, inbound_secret_key, inbound_text,
			inbound_metadata, inbound_utc, model_scoring,
			returned_content, returned_utc
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING inbound_id
	`, rec.FeedbackSecretKey, rec.InboundSecretKey, rec.Text,
		nullableJSON(rec.Metadata), rec.ReceivedUTC, scoring,
		nullableJSON(rec.ReturnedContent), rec.ReturnedUTC).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get fetches one stored transaction by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (matching.InboundRecord, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT inbound_id, feedback_secret_key, inbound_secret_key, inbound_text,
		       inbound_metadata, inbound_utc, model_scoring,
		       returned_content, returned_utc, returned_feedback
		FROM inbounds
		WHERE inbound_id = $1
	`, id)
	rec, err := scanInbound(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return matching.InboundRecord{}, false, nil
	}
	if err != nil {
		return matching.InboundRecord{}, false, err
	}
	return rec, true, nil
}

// AppendFeedback appends one feedback entry inside a single transaction. A
// legacy single-object feedback value is upgraded to a one-element list
// before the append so history is never overwritten.
func (r *PostgresRepository) AppendFeedback(ctx context.Context, id int64, feedback json.RawMessage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var stored []byte
	err = tx.QueryRow(ctx, `
		SELECT returned_feedback FROM inbounds WHERE inbound_id = $1 FOR UPDATE
	`, id).Scan(&stored)
	if err != nil {
		return err
	}

	upgraded, err := matching.AppendFeedbackEntry(stored, feedback)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE inbounds SET returned_feedback = $2 WHERE inbound_id = $1
	`, id, upgraded); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListSince fetches transactions received at or after the cutoff.
func (r *PostgresRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]matching.InboundRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT inbound_id, feedback_secret_key, inbound_secret_key, inbound_text,
		       inbound_metadata, inbound_utc, model_scoring,
		       returned_content, returned_utc, returned_feedback
		FROM inbounds
		WHERE inbound_utc >= $1
		ORDER BY inbound_id
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []matching.InboundRecord
	for rows.Next() {
		rec, err := scanInbound(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Ping verifies the backing connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInbound(row rowScanner) (matching.InboundRecord, error) {
	var (
		rec      matching.InboundRecord
		metadata []byte
		scoring  []byte
		returned []byte
		feedback []byte
	)
	if err := row.Scan(&rec.ID, &rec.FeedbackSecretKey, &rec.InboundSecretKey, &rec.Text,
		&metadata, &rec.ReceivedUTC, &scoring, &returned, &rec.ReturnedUTC, &feedback); err != nil {
		return matching.InboundRecord{}, err
	}
	if len(scoring) > 0 {
		if err := json.Unmarshal(scoring, &rec.Scoring); err != nil {
			return matching.InboundRecord{}, err
		}
	}
	rec.Metadata = json.RawMessage(metadata)
	rec.ReturnedContent = json.RawMessage(returned)
	rec.Feedback = json.RawMessage(feedback)
	return rec, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

var _ matching.InboundRepository = (*PostgresRepository)(nil)
