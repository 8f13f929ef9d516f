package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/helpline/faqmatch/internal/domain/matching"
	apperrors "github.com/helpline/faqmatch/pkg/errors"
)

// Handler wires the HTTP transport to the matching service.
type Handler struct {
	svc    matching.Service
	logger *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc matching.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger.With("component", "http.handler"),
	}
}

// CheckInbound scores a message against the corpus, stores the result and
// returns the first page of ranked responses.
func (h *Handler) CheckInbound(c *gin.Context) {
	var req matching.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	resp, err := h.svc.ScoreAndStore(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainHTTPError(err, "check_failed"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetInboundPage replays one page of a previously stored ranking.
func (h *Handler) GetInboundPage(c *gin.Context) {
	inboundID, err := strconv.ParseInt(c.Param("inbound_id"), 10, 64)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "not_found", "no such inbound", err))
		return
	}
	pageNumber, err := strconv.Atoi(c.Param("page_number"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "not_found", "no such page", err))
		return
	}
	secretKey := c.Query("inbound_secret_key")

	resp, err := h.svc.GetPage(c.Request.Context(), inboundID, secretKey, pageNumber)
	if err != nil {
		abortWithError(c, domainHTTPError(err, "page_failed"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AddFeedback appends caller feedback to a stored inbound.
func (h *Handler) AddFeedback(c *gin.Context) {
	var req matching.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	if err := h.svc.AppendFeedback(c.Request.Context(), req); err != nil {
		abortWithError(c, domainHTTPError(err, "feedback_failed"))
		return
	}

	c.String(http.StatusOK, "Success")
}

// RefreshCorpus forces a reload of the scoring corpus.
func (h *Handler) RefreshCorpus(c *gin.Context) {
	count, err := h.svc.RefreshCorpus(c.Request.Context())
	if err != nil {
		abortWithError(c, domainHTTPError(err, "refresh_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": count})
}

// RefreshLanguageContext reloads the active language context and reconfigures
// the scoring engine with it.
func (h *Handler) RefreshLanguageContext(c *gin.Context) {
	version, err := h.svc.RefreshLanguageContext(c.Request.Context())
	if err != nil {
		abortWithError(c, domainHTTPError(err, "refresh_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"version_id": version})
}

// CheckNewTags previews how a proposed tag set would rank against the corpus.
func (h *Handler) CheckNewTags(c *gin.Context) {
	var req matching.CheckNewTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.svc.CheckNewTags(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainHTTPError(err, "check_new_tags_failed"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ValidateTags reports which of the submitted tags the engine does not know.
func (h *Handler) ValidateTags(c *gin.Context) {
	var req struct {
		TagsToCheck []string `json:"tags_to_check"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	invalid, err := h.svc.ValidateTags(c.Request.Context(), req.TagsToCheck)
	if err != nil {
		abortWithError(c, domainHTTPError(err, "validate_tags_failed"))
		return
	}

	c.JSON(http.StatusOK, invalid)
}

// ExportInbounds archives recent inbound history to object storage.
func (h *Handler) ExportInbounds(c *gin.Context) {
	var req matching.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.svc.ExportInbounds(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainHTTPError(err, "export_failed"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Healthcheck verifies the database, corpus and engine vocabulary are usable.
func (h *Handler) Healthcheck(c *gin.Context) {
	if err := h.svc.Healthy(c.Request.Context()); err != nil {
		abortWithError(c, domainHTTPError(err, "unhealthy"))
		return
	}
	c.String(http.StatusOK, "Healthy ok")
}

// AuthHealthcheck only succeeds when the caller presented valid credentials.
func (h *Handler) AuthHealthcheck(c *gin.Context) {
	c.String(http.StatusOK, "Authenticated ok")
}

// domainHTTPError maps service error codes onto transport statuses.
func domainHTTPError(err error, fallbackCode string) *HTTPError {
	status := http.StatusInternalServerError
	code := fallbackCode
	switch apperrors.CodeOf(err) {
	case "invalid_input":
		status = http.StatusBadRequest
		code = "invalid_request"
	case "unauthorized":
		status = http.StatusUnauthorized
		code = "unauthorized"
	case "forbidden":
		status = http.StatusForbidden
		code = "forbidden"
	case "not_found":
		status = http.StatusNotFound
		code = "not_found"
	case "not_implemented":
		status = http.StatusNotImplemented
		code = "not_implemented"
	case "upstream_timeout":
		status = http.StatusGatewayTimeout
		code = "upstream_timeout"
	case "engine_error":
		status = http.StatusBadGateway
		code = "engine_error"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
