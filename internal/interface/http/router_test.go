package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/helpline/faqmatch/internal/domain/matching"
	"github.com/helpline/faqmatch/internal/infra/config"
	apperrors "github.com/helpline/faqmatch/pkg/errors"
)

type stubService struct {
	checkResp    matching.CheckResponse
	checkErr     error
	lastCheck    matching.CheckRequest
	pageResp     matching.PageResponse
	pageErr      error
	feedbackErr  error
	refreshCount int
	healthyErr   error
	validateOut  []string
}

func (s *stubService) ScoreAndStore(_ context.Context, req matching.CheckRequest) (matching.CheckResponse, error) {
	s.lastCheck = req
	resp := s.checkResp
	if req.ReturnScoring {
		resp.Scoring = &matching.ScoringRecord{Scores: map[string]matching.ScoreEntry{
			"1": {Title: "billing", OverallScore: "0.90000000", Rank: "1"},
		}}
	}
	return resp, s.checkErr
}

func (s *stubService) GetPage(context.Context, int64, string, int) (matching.PageResponse, error) {
	return s.pageResp, s.pageErr
}

func (s *stubService) AppendFeedback(context.Context, matching.FeedbackRequest) error {
	return s.feedbackErr
}

func (s *stubService) RefreshCorpus(context.Context) (int, error) {
	return s.refreshCount, nil
}

func (s *stubService) RefreshLanguageContext(context.Context) (string, error) {
	return "v1", nil
}

func (s *stubService) CheckNewTags(context.Context, matching.CheckNewTagsRequest) (matching.CheckNewTagsResponse, error) {
	return matching.CheckNewTagsResponse{}, nil
}

func (s *stubService) ValidateTags(context.Context, []string) ([]string, error) {
	return s.validateOut, nil
}

func (s *stubService) ExportInbounds(context.Context, matching.ExportRequest) (matching.ExportResponse, error) {
	return matching.ExportResponse{Exported: 2, Location: "memory/inbounds/test.jsonl"}, nil
}

func (s *stubService) Healthy(context.Context) error {
	return s.healthyErr
}

var _ matching.Service = (*stubService)(nil)

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			Environment:  "development",
		},
		Auth: config.AuthConfig{
			BearerToken: "test-token",
			JWTSecret:   "jwt-secret",
		},
	}
}

func newTestServer(t *testing.T, svc matching.Service, cfg *config.Config) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewRouter(cfg, NewHandler(svc, logger))
	return server.Handler
}

func doRequest(handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthcheckNeedsNoAuth(t *testing.T) {
	handler := newTestServer(t, &stubService{}, testConfig())

	rec := doRequest(handler, http.MethodGet, "/healthcheck", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Healthy")
}

func TestHealthcheckReportsFailure(t *testing.T) {
	svc := &stubService{healthyErr: apperrors.Wrap("storage_error", "database connection failed", nil)}
	handler := newTestServer(t, svc, testConfig())

	rec := doRequest(handler, http.MethodGet, "/healthcheck", "", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthHealthcheck(t *testing.T) {
	handler := newTestServer(t, &stubService{}, testConfig())

	require.Equal(t, http.StatusUnauthorized, doRequest(handler, http.MethodGet, "/auth-healthcheck", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, doRequest(handler, http.MethodGet, "/auth-healthcheck", "wrong", "").Code)
	require.Equal(t, http.StatusOK, doRequest(handler, http.MethodGet, "/auth-healthcheck", "test-token", "").Code)
}

func TestAuthAcceptsSignedJWT(t *testing.T) {
	handler := newTestServer(t, &stubService{}, testConfig())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("jwt-secret"))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, doRequest(handler, http.MethodGet, "/auth-healthcheck", signed, "").Code)
}

func TestAuthRejectsJWTWithWrongSecret(t *testing.T) {
	handler := newTestServer(t, &stubService{}, testConfig())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	require.Equal(t, http.StatusUnauthorized, doRequest(handler, http.MethodGet, "/auth-healthcheck", signed, "").Code)
}

func TestCheckInbound(t *testing.T) {
	svc := &stubService{checkResp: matching.CheckResponse{
		TopResponses:      []matching.TopResponse{{FAQID: "1", Title: "billing", Content: "pay here"}},
		InboundID:         "12",
		InboundSecretKey:  "ik",
		FeedbackSecretKey: "fk",
	}}
	handler := newTestServer(t, svc, testConfig())

	rec := doRequest(handler, http.MethodPost, "/inbound/check", "test-token", `{"text_to_match":"how to pay"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"inbound_id":"12"`)
	require.Contains(t, rec.Body.String(), `["1","billing","pay here"]`)
}

func TestCheckInboundReturnScoring(t *testing.T) {
	svc := &stubService{checkResp: matching.CheckResponse{InboundID: "12"}}
	handler := newTestServer(t, svc, testConfig())

	rec := doRequest(handler, http.MethodPost, "/inbound/check", "test-token",
		`{"text_to_match":"q","return_scoring":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, bool(svc.lastCheck.ReturnScoring))
	require.Contains(t, rec.Body.String(), `"scoring"`)

	// The historical string form is accepted too.
	rec = doRequest(handler, http.MethodPost, "/inbound/check", "test-token",
		`{"text_to_match":"q","return_scoring":"true"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, bool(svc.lastCheck.ReturnScoring))
	require.Contains(t, rec.Body.String(), `"scoring"`)

	rec = doRequest(handler, http.MethodPost, "/inbound/check", "test-token",
		`{"text_to_match":"q","return_scoring":"false"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, bool(svc.lastCheck.ReturnScoring))
	require.NotContains(t, rec.Body.String(), `"scoring"`)

	rec = doRequest(handler, http.MethodPost, "/inbound/check", "test-token",
		`{"text_to_match":"q"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, bool(svc.lastCheck.ReturnScoring))
	require.NotContains(t, rec.Body.String(), `"scoring"`)
}

func TestCheckInboundRejectsMalformedBody(t *testing.T) {
	handler := newTestServer(t, &stubService{}, testConfig())

	rec := doRequest(handler, http.MethodPost, "/inbound/check", "test-token", `{"text_to_match":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckInboundRequiresAuth(t *testing.T) {
	handler := newTestServer(t, &stubService{}, testConfig())

	rec := doRequest(handler, http.MethodPost, "/inbound/check", "", `{"text_to_match":"q"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetInboundPageErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"forbidden", apperrors.Wrap("forbidden", "incorrect inbound secret key", nil), http.StatusForbidden},
		{"not found", apperrors.Wrap("not_found", "page does not exist", nil), http.StatusNotFound},
		{"storage", apperrors.Wrap("storage_error", "lookup failed", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestServer(t, &stubService{pageErr: tc.err}, testConfig())
			rec := doRequest(handler, http.MethodGet, "/inbound/12/2?inbound_secret_key=k", "test-token", "")
			require.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestGetInboundPageBadIDIsNotFound(t *testing.T) {
	handler := newTestServer(t, &stubService{}, testConfig())

	rec := doRequest(handler, http.MethodGet, "/inbound/abc/1", "test-token", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddFeedback(t *testing.T) {
	handler := newTestServer(t, &stubService{}, testConfig())

	rec := doRequest(handler, http.MethodPut, "/inbound/feedback", "test-token",
		`{"inbound_id":12,"feedback_secret_key":"fk","feedback":{"feedback_type":"positive","faq_id":"1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Success")
}

func TestAddFeedbackErrorMapping(t *testing.T) {
	svc := &stubService{feedbackErr: apperrors.Wrap("invalid_input", "feedback malformed", nil)}
	handler := newTestServer(t, svc, testConfig())

	rec := doRequest(handler, http.MethodPut, "/inbound/feedback", "test-token",
		`{"inbound_id":12,"feedback_secret_key":"fk","feedback":{}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshEndpoints(t *testing.T) {
	handler := newTestServer(t, &stubService{refreshCount: 9}, testConfig())

	rec := doRequest(handler, http.MethodGet, "/internal/refresh-faqs", "test-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"refreshed":9`)

	rec = doRequest(handler, http.MethodGet, "/internal/refresh-language-context", "test-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"version_id":"v1"`)
}

func TestToolsRoutesHiddenInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.Environment = "production"
	handler := newTestServer(t, &stubService{}, cfg)

	rec := doRequest(handler, http.MethodPost, "/tools/validate-tags", "test-token", `{"tags_to_check":["a"]}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToolsRoutesAvailableInDevelopment(t *testing.T) {
	handler := newTestServer(t, &stubService{validateOut: []string{"xqzt"}}, testConfig())

	rec := doRequest(handler, http.MethodPost, "/tools/validate-tags", "test-token", `{"tags_to_check":["xqzt"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "xqzt")
}

func TestExportInbounds(t *testing.T) {
	handler := newTestServer(t, &stubService{}, testConfig())

	rec := doRequest(handler, http.MethodPost, "/internal/export-inbounds", "test-token", `{"limit":100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"exported":2`)
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestServer(t, &stubService{}, testConfig())

	doRequest(handler, http.MethodGet, "/healthcheck", "", "")
	rec := doRequest(handler, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "faqmatch_http_requests_total")
}
