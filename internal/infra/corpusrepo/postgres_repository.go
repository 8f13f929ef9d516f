package corpusrepo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpline/faqmatch/internal/domain/matching"
)

// PostgresRepository implements matching.CorpusRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ListItems fetches the full corpus ordered by id.
func (r *PostgresRepository) ListItems(ctx context.Context) ([]matching.CorpusItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT faq_id, faq_title, faq_content_to_send, faq_tags, faq_thresholds,
		       faq_weight, faq_contexts, faq_author, faq_added_utc, faq_updated_utc
		FROM faqmatches
		ORDER BY faq_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []matching.CorpusItem
	for rows.Next() {
		var (
			item    matching.CorpusItem
			weight  sql.NullInt64
			author  sql.NullString
			added   sql.NullTime
			updated sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.Title, &item.Content, &item.Tags,
			&item.Thresholds, &weight, &item.Contexts, &author, &added, &updated); err != nil {
			return nil, err
		}
		if weight.Valid {
			item.Weight = int(weight.Int64)
		} else {
			item.Weight = 1
		}
		item.Author = author.String
		item.AddedUTC = added.Time
		item.UpdatedUTC = updated.Time
		items = append(items, item)
	}
	return items, rows.Err()
}

// ActiveLanguageContext fetches the single active contextualization record,
// or nil when none is configured.
func (r *PostgresRepository) ActiveLanguageContext(ctx context.Context) (*matching.LanguageContext, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT version_id, custom_wvs, pairwise_triplewise_entities, tag_guiding_typos
		FROM language_contexts
		WHERE active
		ORDER BY created_utc DESC
		LIMIT 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}

	var (
		lc       matching.LanguageContext
		glossary []byte
		pairwise []byte
	)
	if err := rows.Scan(&lc.VersionID, &glossary, &pairwise, &lc.TagGuidingTypos); err != nil {
		return nil, err
	}
	if len(glossary) > 0 {
		if err := json.Unmarshal(glossary, &lc.Glossary); err != nil {
			return nil, err
		}
	}
	if len(pairwise) > 0 {
		if err := json.Unmarshal(pairwise, &lc.PairwiseEntities); err != nil {
			return nil, err
		}
	}
	return &lc, rows.Err()
}

var _ matching.CorpusRepository = (*PostgresRepository)(nil)
