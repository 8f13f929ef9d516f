package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	apperrors "github.com/helpline/faqmatch/pkg/errors"
	"github.com/helpline/faqmatch/pkg/util"
)

const newTagsMatchedTitle = "*** NEW TAGS MATCHED ***"

// Service is the request orchestrator every transport call drives.
type Service interface {
	ScoreAndStore(ctx context.Context, req CheckRequest) (CheckResponse, error)
	GetPage(ctx context.Context, inboundID int64, inboundSecretKey string, pageNumber int) (PageResponse, error)
	AppendFeedback(ctx context.Context, req FeedbackRequest) error
	RefreshCorpus(ctx context.Context) (int, error)
	RefreshLanguageContext(ctx context.Context) (string, error)
	CheckNewTags(ctx context.Context, req CheckNewTagsRequest) (CheckNewTagsResponse, error)
	ValidateTags(ctx context.Context, tags []string) ([]string, error)
	ExportInbounds(ctx context.Context, req ExportRequest) (ExportResponse, error)
	Healthy(ctx context.Context) error
}

// Config drives the orchestrator.
type Config struct {
	ReductionMethod string
	MeanPlusWeightN int
	PageSize        int
	ToolsTopMatches int
	ContextActive   bool
	ContextList     []string
	EngineTimeout   time.Duration
	CorpusTTL       time.Duration
	ContextTTL      time.Duration
	ResultCacheTTL  time.Duration
}

type service struct {
	cfg         Config
	corpusRepo  CorpusRepository
	inboundRepo InboundRepository
	engine      Engine
	resultCache ResultCache
	archive     Archive
	reduce      ReduceFunc
	logger      *slog.Logger
	now         func() time.Time

	corpusCache  *refreshCache[*Snapshot]
	contextCache *refreshCache[*LanguageContext]
}

// NewService wires up the matching domain. An unknown reduction method is a
// configuration fault and fails here, not per request.
func NewService(cfg Config, corpusRepo CorpusRepository, inboundRepo InboundRepository, engine Engine, resultCache ResultCache, archive Archive, logger *slog.Logger) (Service, error) {
	reduce, err := NewReducerRegistry().Get(cfg.ReductionMethod)
	if err != nil {
		return nil, apperrors.Wrap("config_error", "invalid reduction method", err)
	}
	if cfg.PageSize <= 0 {
		return nil, apperrors.Wrap("config_error", "page size must be positive", nil)
	}
	if cfg.ToolsTopMatches <= 0 {
		cfg.ToolsTopMatches = 10
	}

	s := &service{
		cfg:         cfg,
		corpusRepo:  corpusRepo,
		inboundRepo: inboundRepo,
		engine:      engine,
		resultCache: resultCache,
		archive:     archive,
		reduce:      reduce,
		logger:      logger.With("component", "matching.service"),
		now:         util.NowUTC,
	}
	s.corpusCache = newRefreshCache(cfg.CorpusTTL, s.timeNow, s.loadSnapshot, s.logger.With("cache", "corpus"))
	s.contextCache = newRefreshCache(cfg.ContextTTL, s.timeNow, s.loadLanguageContext, s.logger.With("cache", "language_context"))
	return s, nil
}

func (s *service) timeNow() time.Time { return s.now() }

func (s *service) loadSnapshot(ctx context.Context) (*Snapshot, error) {
	items, err := s.corpusRepo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(a, b int) bool { return items[a].ID < items[b].ID })
	items, err = AddWeightShares(items)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Items: items, LoadedAt: s.now()}
	if s.cfg.ContextActive && len(s.cfg.ContextList) > 0 {
		snap.contextualizer = NewContextualizer(s.cfg.ContextList, items)
	}
	s.logger.Info("corpus snapshot loaded", "items", len(items))
	return snap, nil
}

func (s *service) loadLanguageContext(ctx context.Context) (*LanguageContext, error) {
	lc, err := s.corpusRepo.ActiveLanguageContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Configure(ctx, lc); err != nil {
		return nil, err
	}
	return lc, nil
}

func (s *service) ScoreAndStore(ctx context.Context, req CheckRequest) (CheckResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return CheckResponse{}, apperrors.Wrap("invalid_input", "text_to_match cannot be empty", nil)
	}

	// The language context must be applied to the engine before scoring.
	if _, err := s.contextCache.Get(ctx); err != nil {
		return CheckResponse{}, err
	}
	snap, err := s.corpusCache.Get(ctx)
	if err != nil {
		return CheckResponse{}, err
	}

	var contextWeights map[int64]float64
	if len(req.Contexts) > 0 && snap.contextualizer != nil {
		contextWeights, err = snap.contextualizer.Weights(req.Contexts)
		if err != nil {
			return CheckResponse{}, err
		}
	}

	result, err := s.scoreEntries(ctx, text, snap.Entries())
	if err != nil {
		return CheckResponse{}, err
	}

	overall := make([]float64, len(snap.Items))
	opts := ReduceOptions{N: s.cfg.MeanPlusWeightN}
	for i, item := range snap.Items {
		score := s.reduce(result.TagScores[i], item.WeightShare, opts)
		if w, ok := contextWeights[item.ID]; ok {
			score *= w
		}
		overall[i] = score
	}

	record, err := BuildScoringRecord(snap.Items, overall, strings.Join(result.SpellCorrected, " "))
	if err != nil {
		return CheckResponse{}, err
	}

	keys, err := GenerateSecretKeys()
	if err != nil {
		return CheckResponse{}, err
	}

	page := Paginate(record, 1, s.cfg.PageSize)
	resp := CheckResponse{
		TopResponses:      page.Items,
		FeedbackSecretKey: keys.FeedbackSecretKey,
		InboundSecretKey:  keys.InboundSecretKey,
		SpellCorrected:    record.SpellCorrected,
	}
	if req.ReturnScoring {
		resp.Scoring = &record
	}

	returned, err := json.Marshal(resp)
	if err != nil {
		return CheckResponse{}, apperrors.Wrap("storage_error", "response payload serialization failed", err)
	}

	receivedAt := s.now()
	id, err := s.inboundRepo.Insert(ctx, InboundRecord{
		FeedbackSecretKey: keys.FeedbackSecretKey,
		InboundSecretKey:  keys.InboundSecretKey,
		Text:              req.Text,
		Metadata:          req.Metadata,
		ReceivedUTC:       receivedAt,
		Scoring:           record,
		ReturnedContent:   returned,
		ReturnedUTC:       s.now(),
	})
	if err != nil {
		return CheckResponse{}, apperrors.Wrap("storage_error", "inbound persist failed", err)
	}

	resp.InboundID = formatID(id)
	if page.HasNext {
		resp.NextPageURL = pageURL(id, 2, keys.InboundSecretKey)
	}
	return resp, nil
}

func (s *service) GetPage(ctx context.Context, inboundID int64, inboundSecretKey string, pageNumber int) (PageResponse, error) {
	rec, err := s.lookupInbound(ctx, inboundID)
	if err != nil {
		return PageResponse{}, err
	}
	if !secretKeyMatches(rec.InboundSecretKey, inboundSecretKey) {
		return PageResponse{}, apperrors.Wrap("forbidden", "incorrect inbound secret key", nil)
	}

	maxPages := MaxPages(len(rec.Scoring.Scores), s.cfg.PageSize)
	if pageNumber < 1 || pageNumber > maxPages {
		return PageResponse{}, apperrors.Wrap("not_found",
			fmt.Sprintf("page does not exist, valid pages for id %d are 1..%d", inboundID, maxPages), nil)
	}

	page := Paginate(rec.Scoring, pageNumber, s.cfg.PageSize)
	resp := PageResponse{
		TopResponses:      page.Items,
		FeedbackSecretKey: rec.FeedbackSecretKey,
		InboundSecretKey:  rec.InboundSecretKey,
		InboundID:         formatID(inboundID),
	}
	if page.HasNext {
		resp.NextPageURL = pageURL(inboundID, pageNumber+1, rec.InboundSecretKey)
	}
	if page.HasPrev {
		resp.PrevPageURL = pageURL(inboundID, pageNumber-1, rec.InboundSecretKey)
	}
	return resp, nil
}

func (s *service) AppendFeedback(ctx context.Context, req FeedbackRequest) error {
	rec, found, err := s.inboundRepo.Get(ctx, req.InboundID)
	if err != nil {
		return apperrors.Wrap("storage_error", "inbound lookup failed", err)
	}
	if !found {
		return apperrors.Wrap("not_found", fmt.Sprintf("no inbound message with id %d found", req.InboundID), nil)
	}
	if !secretKeyMatches(rec.FeedbackSecretKey, req.FeedbackSecretKey) {
		return apperrors.Wrap("forbidden", "incorrect feedback secret key", nil)
	}
	if err := validateFeedback(req.Feedback); err != nil {
		return err
	}

	if err := s.inboundRepo.AppendFeedback(ctx, req.InboundID, req.Feedback); err != nil {
		return apperrors.Wrap("storage_error", "feedback persist failed", err)
	}
	if err := s.resultCache.Invalidate(ctx, req.InboundID); err != nil {
		s.logger.Warn("result cache invalidation failed", "inbound_id", req.InboundID, "error", err)
	}
	return nil
}

func (s *service) RefreshCorpus(ctx context.Context) (int, error) {
	snap, err := s.corpusCache.Refresh(ctx)
	if err != nil {
		return 0, err
	}
	return len(snap.Items), nil
}

func (s *service) RefreshLanguageContext(ctx context.Context) (string, error) {
	lc, err := s.contextCache.Refresh(ctx)
	if err != nil {
		return "", err
	}
	if lc == nil {
		return "", nil
	}
	return lc.VersionID, nil
}

func (s *service) CheckNewTags(ctx context.Context, req CheckNewTagsRequest) (CheckNewTagsResponse, error) {
	if len(req.TagsToCheck) == 0 {
		return CheckNewTagsResponse{}, apperrors.Wrap("invalid_input", "tags_to_check cannot be empty", nil)
	}
	if _, err := s.contextCache.Get(ctx); err != nil {
		return CheckNewTagsResponse{}, err
	}
	snap, err := s.corpusCache.Get(ctx)
	if err != nil {
		return CheckNewTagsResponse{}, err
	}

	entries := append(snap.Entries(), CandidateItem{Title: newTagsMatchedTitle, Tags: req.TagsToCheck})
	shares := make([]float64, len(entries))
	for i, item := range snap.Items {
		shares[i] = item.WeightShare
	}

	resp := CheckNewTagsResponse{TopMatchesForEachQuery: make([][]CandidateMatch, 0, len(req.QueriesToCheck))}
	opts := ReduceOptions{N: s.cfg.MeanPlusWeightN}
	for _, query := range req.QueriesToCheck {
		result, err := s.scoreEntries(ctx, query, entries)
		if err != nil {
			return CheckNewTagsResponse{}, err
		}

		order := make([]int, len(entries))
		scores := make([]float64, len(entries))
		for i := range entries {
			order[i] = i
			scores[i] = s.reduce(result.TagScores[i], shares[i], opts)
		}
		sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

		seen := make(map[string]struct{})
		matches := make([]CandidateMatch, 0, s.cfg.ToolsTopMatches)
		for _, idx := range order {
			entry := entries[idx]
			if _, ok := seen[entry.EntryTitle()]; ok {
				continue
			}
			seen[entry.EntryTitle()] = struct{}{}
			matches = append(matches, CandidateMatch{
				Title: entry.EntryTitle(),
				Score: fmt.Sprintf("%.4f", scores[idx]),
				Tags:  entry.EntryTags(),
			})
			if len(matches) == s.cfg.ToolsTopMatches {
				break
			}
		}
		resp.TopMatchesForEachQuery = append(resp.TopMatchesForEachQuery, matches)
	}
	return resp, nil
}

func (s *service) ValidateTags(ctx context.Context, tags []string) ([]string, error) {
	failed := make([]string, 0)
	for _, tag := range tags {
		ok, err := s.engine.HasTerm(ctx, tag)
		if err != nil {
			return nil, apperrors.Wrap("engine_error", "vocabulary lookup failed", err)
		}
		if !ok {
			failed = append(failed, tag)
		}
	}
	return failed, nil
}

func (s *service) ExportInbounds(ctx context.Context, req ExportRequest) (ExportResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 1000
	}
	recs, err := s.inboundRepo.ListSince(ctx, req.Since, limit)
	if err != nil {
		return ExportResponse{}, apperrors.Wrap("storage_error", "inbound listing failed", err)
	}

	var buf strings.Builder
	for _, rec := range recs {
		line, err := json.Marshal(map[string]any{
			"inbound_id":   rec.ID,
			"inbound_text": rec.Text,
			"inbound_utc":  rec.ReceivedUTC,
			"returned_utc": rec.ReturnedUTC,
			"feedback":     rec.Feedback,
		})
		if err != nil {
			return ExportResponse{}, apperrors.Wrap("storage_error", "export serialization failed", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	key := fmt.Sprintf("inbounds/%s.jsonl", s.now().Format("20060102T150405Z"))
	location, err := s.archive.Put(ctx, key, []byte(buf.String()), "application/x-ndjson")
	if err != nil {
		return ExportResponse{}, apperrors.Wrap("storage_error", "archive upload failed", err)
	}
	return ExportResponse{Exported: len(recs), Location: location}, nil
}

func (s *service) Healthy(ctx context.Context) error {
	if err := s.inboundRepo.Ping(ctx); err != nil {
		return apperrors.Wrap("storage_error", "database connection failed", err)
	}
	snap, err := s.corpusCache.Refresh(ctx)
	if err != nil {
		return err
	}
	if len(snap.Items) == 0 {
		return apperrors.Wrap("config_error", "no corpus items in database", nil)
	}
	ok, err := s.engine.HasTerm(ctx, "test")
	if err != nil {
		return apperrors.Wrap("engine_error", "vocabulary probe failed", err)
	}
	if !ok {
		return apperrors.Wrap("engine_error", "engine vocabulary probe returned no match", nil)
	}
	return nil
}

func (s *service) lookupInbound(ctx context.Context, inboundID int64) (InboundRecord, error) {
	if rec, ok, err := s.resultCache.Get(ctx, inboundID); err == nil && ok {
		return rec, nil
	} else if err != nil {
		s.logger.Warn("result cache lookup failed", "inbound_id", inboundID, "error", err)
	}

	rec, found, err := s.inboundRepo.Get(ctx, inboundID)
	if err != nil {
		return InboundRecord{}, apperrors.Wrap("storage_error", "inbound lookup failed", err)
	}
	if !found {
		return InboundRecord{}, apperrors.Wrap("not_found", fmt.Sprintf("no inbound message with id %d found", inboundID), nil)
	}
	if err := s.resultCache.Set(ctx, rec, s.cfg.ResultCacheTTL); err != nil {
		s.logger.Warn("result cache store failed", "inbound_id", inboundID, "error", err)
	}
	return rec, nil
}

func (s *service) scoreEntries(ctx context.Context, text string, entries []Entry) (EngineResult, error) {
	engineCtx := ctx
	cancel := func() {}
	if s.cfg.EngineTimeout > 0 {
		engineCtx, cancel = context.WithTimeout(ctx, s.cfg.EngineTimeout)
	}
	defer cancel()

	result, err := s.engine.ScoreEntries(engineCtx, text, entries)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return EngineResult{}, apperrors.Wrap("upstream_timeout", "matching engine exceeded deadline", err)
		}
		return EngineResult{}, apperrors.Wrap("engine_error", "matching engine call failed", err)
	}
	if len(result.TagScores) != len(entries) {
		return EngineResult{}, apperrors.Wrap("engine_error",
			fmt.Sprintf("engine returned %d score rows for %d entries", len(result.TagScores), len(entries)), nil)
	}
	return result, nil
}

func pageURL(inboundID int64, pageNumber int, inboundSecretKey string) string {
	return fmt.Sprintf("/inbound/%d/%d?inbound_secret_key=%s", inboundID, pageNumber, url.QueryEscape(inboundSecretKey))
}

// validateFeedback enforces the feedback shape: an object with feedback_type
// positive or negative, where positive requires an faq_id and negative
// requires an faq_id or a page_number.
func validateFeedback(raw json.RawMessage) error {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return apperrors.Wrap("invalid_input", "malformed feedback JSON", err)
	}

	var feedbackType string
	if err := json.Unmarshal(payload["feedback_type"], &feedbackType); err != nil {
		return apperrors.Wrap("invalid_input", "feedback_type must be a string", err)
	}
	_, hasFAQID := payload["faq_id"]
	_, hasPage := payload["page_number"]

	switch feedbackType {
	case "positive":
		if !hasFAQID {
			return apperrors.Wrap("invalid_input", "positive feedback requires faq_id", nil)
		}
	case "negative":
		if !hasFAQID && !hasPage {
			return apperrors.Wrap("invalid_input", "negative feedback requires faq_id or page_number", nil)
		}
	default:
		return apperrors.Wrap("invalid_input", "feedback_type must be positive or negative", nil)
	}
	return nil
}
