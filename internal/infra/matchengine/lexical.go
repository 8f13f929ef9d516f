package matchengine

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/helpline/faqmatch/internal/domain/matching"
)

// LexicalEngine is a deterministic, dependency-free engine used when no
// external engine is configured and by tests. It scores each tag by the
// best token overlap with the message; "spell correction" is plain
// normalization plus the configured glossary and entity pairs.
type LexicalEngine struct {
	mu       sync.RWMutex
	glossary map[string][]string
	pairwise map[string]string
}

// NewLexicalEngine constructs the engine.
func NewLexicalEngine() *LexicalEngine {
	return &LexicalEngine{
		glossary: make(map[string][]string),
		pairwise: make(map[string]string),
	}
}

// ScoreEntries implements matching.Engine.
func (e *LexicalEngine) ScoreEntries(_ context.Context, text string, entries []matching.Entry) (matching.EngineResult, error) {
	tokens := e.tokenize(text)

	result := matching.EngineResult{
		TagScores:      make([][]float64, len(entries)),
		SpellCorrected: tokens,
	}
	for i, entry := range entries {
		tags := entry.EntryTags()
		row := make([]float64, len(tags))
		for j, tag := range tags {
			row[j] = bestTokenSimilarity(tokens, normalizeToken(tag))
		}
		result.TagScores[i] = row
	}
	return result, nil
}

// Configure implements matching.Engine.
func (e *LexicalEngine) Configure(_ context.Context, lc *matching.LanguageContext) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.glossary = make(map[string][]string)
	e.pairwise = make(map[string]string)
	if lc != nil {
		for term, expansion := range lc.Glossary {
			e.glossary[normalizeToken(term)] = expansion
		}
		for pair, entity := range lc.PairwiseEntities {
			e.pairwise[normalizeToken(pair)] = entity
		}
	}
	return nil
}

// HasTerm implements matching.Engine. The lexical vocabulary covers any
// alphabetic term.
func (e *LexicalEngine) HasTerm(_ context.Context, term string) (bool, error) {
	normalized := normalizeToken(term)
	if normalized == "" {
		return false, nil
	}
	for _, r := range normalized {
		if !unicode.IsLetter(r) {
			return false, nil
		}
	}
	return true, nil
}

func (e *LexicalEngine) tokenize(text string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	raw := strings.Fields(text)
	tokens := make([]string, 0, len(raw))
	for _, word := range raw {
		token := normalizeToken(word)
		if token == "" {
			continue
		}
		if expansion, ok := e.glossary[token]; ok {
			tokens = append(tokens, expansion...)
			continue
		}
		tokens = append(tokens, token)
	}

	// Join adjacent tokens that form a known pairwise entity.
	joined := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) {
			if entity, ok := e.pairwise[tokens[i]+" "+tokens[i+1]]; ok {
				joined = append(joined, entity)
				i++
				continue
			}
		}
		joined = append(joined, tokens[i])
	}
	return joined
}

func normalizeToken(word string) string {
	lowered := strings.ToLower(strings.TrimSpace(word))
	var builder strings.Builder
	builder.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			builder.WriteRune(r)
		}
	}
	return strings.TrimSpace(builder.String())
}

// bestTokenSimilarity returns the highest similarity between the tag and any
// message token: 1 for an exact match, otherwise the shared-prefix fraction.
func bestTokenSimilarity(tokens []string, tag string) float64 {
	if tag == "" {
		return 0
	}
	best := 0.0
	for _, token := range tokens {
		if token == tag {
			return 1
		}
		if s := prefixSimilarity(token, tag); s > best {
			best = s
		}
	}
	return best
}

func prefixSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	shared := 0
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			break
		}
		shared++
	}
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	return float64(shared) / float64(longest)
}

var _ matching.Engine = (*LexicalEngine)(nil)
