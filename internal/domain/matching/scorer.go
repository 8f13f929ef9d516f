package matching

import "context"

// Engine is the external matching engine boundary. Given a raw message and a
// set of entries it returns one similarity score per tag per entry, plus an
// echo of the spell-corrected tokenized input. The engine's internals
// (embeddings, tokenization, spell correction) are opaque to this core.
type Engine interface {
	// ScoreEntries returns per-tag similarities aligned with entries and
	// with each entry's tag order.
	ScoreEntries(ctx context.Context, text string, entries []Entry) (EngineResult, error)

	// Configure applies the active language context (glossary, entity
	// pairs, typo guides) to the engine.
	Configure(ctx context.Context, lc *LanguageContext) error

	// HasTerm reports whether the engine's vocabulary covers a term. Used
	// by tag validation tooling.
	HasTerm(ctx context.Context, term string) (bool, error)
}

// EngineResult is the engine's raw output for one message.
type EngineResult struct {
	// TagScores[i][j] is the similarity between the message and entry i's
	// tag j.
	TagScores [][]float64

	// SpellCorrected is the corrected, tokenized form of the input.
	SpellCorrected []string
}
