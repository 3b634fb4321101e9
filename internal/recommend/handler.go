package recommend

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"tagrec-backend/internal/llm"
	"tagrec-backend/internal/sessions"
	"tagrec-backend/internal/shared/server/respond"
	"tagrec-backend/internal/shared/util"
)

const maxRequestSize = 20 << 20 // 20MB across scenario text and attachments

// Handler wires HTTP handlers to the recommendation service.
type Handler struct {
	Svc      *Service
	Sessions *sessions.Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, sessionSvc *sessions.Service) *Handler {
	return &Handler{Svc: svc, Sessions: sessionSvc}
}

// RegisterRoutes attaches recommendation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/recommendations", h.recommend)
}

func (h *Handler) recommend(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestSize)

	sessionID, _ := c.Cookie(sessions.SessionCookie)
	if sessionID == "" {
		respond.Error(c, http.StatusNotFound, "no_session", "upload a taxonomy before requesting recommendations", nil)
		return
	}
	c.Set("sessionId", sessionID)
	session, err := h.Sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, sessions.ErrExpired):
			respond.Error(c, http.StatusGone, "session_expired", "taxonomy session expired, upload again", nil)
		case errors.Is(err, sessions.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "no_session", "upload a taxonomy before requesting recommendations", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load session", nil)
		}
		return
	}

	scenario, ok := h.readScenario(c)
	if !ok {
		return
	}

	rec, err := h.Svc.Recommend(c.Request.Context(), session.Taxonomy, scenario)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyScenario):
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "scenario text is required", nil)
		case errors.Is(err, ErrNoTaxonomy):
			respond.Error(c, http.StatusNotFound, "no_session", "no taxonomy loaded", nil)
		case llm.IsRejected(err):
			respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeContentRejected, "the backend declined to process this scenario", nil)
		case errors.Is(err, ErrBackendUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, ErrorCodeBackendUnavailable, "recommendation backend unavailable, try again later", nil)
		case IsInvalidRecommendation(err):
			respond.Error(c, http.StatusBadGateway, ErrorCodeInvalidOutput, "the backend returned an unusable recommendation", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to produce a recommendation", nil)
		}
		return
	}

	c.Set("tagId", rec.TagID)
	respond.OK(c, gin.H{
		"tagId":      rec.TagID,
		"tagPath":    rec.TagPath,
		"noMatch":    rec.NoMatch(),
		"confidence": rec.Confidence,
		"reasoning":  rec.Reasoning,
		"references": rec.References,
		"model":      rec.Model,
	})
}

// readScenario pulls the scenario text and attachments out of the multipart
// form. Unnamed or unreadable files fail the request rather than being
// silently dropped.
func (h *Handler) readScenario(c *gin.Context) (Scenario, bool) {
	text := c.PostForm("scenario")
	scenario := Scenario{Text: text}

	form, err := c.MultipartForm()
	if err != nil {
		if strings.TrimSpace(text) == "" {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "multipart form with a scenario field is required", nil)
			return Scenario{}, false
		}
		return scenario, true
	}

	for _, header := range form.File["files"] {
		if _, err := util.SanitizeFileName(header.Filename); err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid attachment name", nil)
			return Scenario{}, false
		}
		file, err := header.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "unable to read attachment", nil)
			return Scenario{}, false
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "unable to read attachment", nil)
			return Scenario{}, false
		}
		scenario.Attachments = append(scenario.Attachments, llm.Attachment{
			MIMEType: attachmentMIME(header.Filename, header.Header.Get("Content-Type")),
			Data:     data,
		})
	}
	return scenario, true
}

func attachmentMIME(filename, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
