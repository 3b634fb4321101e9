package sessions

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tagrec-backend/internal/shared/server/middleware"
	"tagrec-backend/internal/shared/server/respond"
	"tagrec-backend/internal/taxonomy"
)

// SessionCookie names the cookie that binds a browser to its taxonomy
// session.
const SessionCookie = "tagrec_session"

// Handler wires HTTP handlers to the sessions service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches taxonomy session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/taxonomy", h.uploadTaxonomy)
	rg.GET("/taxonomy", h.getTaxonomy)
	rg.DELETE("/taxonomy", h.deleteTaxonomy)
	rg.GET("/taxonomy/tags", h.listTags)
}

type uploadRequest struct {
	Filename string `json:"filename"`
	Sheets   []struct {
		Name string     `json:"name"`
		Rows [][]string `json:"rows"`
	} `json:"sheets"`
}

func (h *Handler) uploadTaxonomy(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "request body must be JSON with a sheets array", nil)
		return
	}

	extract := taxonomy.Extract{Sheets: make([]taxonomy.Sheet, 0, len(req.Sheets))}
	for _, sheet := range req.Sheets {
		extract.Sheets = append(extract.Sheets, taxonomy.Sheet{Name: sheet.Name, Rows: sheet.Rows})
	}

	// Re-uploading replaces the session's taxonomy under the same id.
	sessionID, _ := c.Cookie(SessionCookie)
	userID := middleware.UserIDFromContext(c)

	session, err := h.Svc.Create(c.Request.Context(), sessionID, userID, req.Filename, extract)
	if err != nil {
		switch {
		case errors.Is(err, taxonomy.ErrEmptyTaxonomy):
			respond.Error(c, http.StatusUnprocessableEntity, "empty_taxonomy", "the extract contains no tags", nil)
		case taxonomy.IsMalformed(err):
			respond.Error(c, http.StatusUnprocessableEntity, "malformed_taxonomy", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store taxonomy", nil)
		}
		return
	}

	c.Set("sessionId", session.ID)
	h.setSessionCookie(c, session)
	respond.JSON(c, http.StatusCreated, sessionResponse(session))
}

func (h *Handler) getTaxonomy(c *gin.Context) {
	session, ok := h.resolveSession(c)
	if !ok {
		return
	}
	respond.OK(c, sessionResponse(session))
}

func (h *Handler) deleteTaxonomy(c *gin.Context) {
	sessionID, err := c.Cookie(SessionCookie)
	if err != nil || sessionID == "" {
		respond.Error(c, http.StatusNotFound, "no_session", "no taxonomy session", nil)
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), sessionID); err != nil && !errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete session", nil)
		return
	}
	h.clearSessionCookie(c)
	respond.JSON(c, http.StatusNoContent, nil)
}

func (h *Handler) listTags(c *gin.Context) {
	session, ok := h.resolveSession(c)
	if !ok {
		return
	}

	tags := make([]gin.H, 0, session.Taxonomy.NodeCount)
	session.Taxonomy.Walk(func(n *taxonomy.Node) {
		tags = append(tags, gin.H{
			"id":          n.ID,
			"label":       n.Label,
			"parentId":    n.ParentID,
			"description": n.Description,
			"sheet":       n.Sheet,
			"depth":       n.Depth,
		})
	})
	respond.OK(c, gin.H{
		"sessionId": session.ID,
		"tags":      tags,
	})
}

// resolveSession finds the caller's session by cookie, falling back to the
// signed-in user's stored session. A session reached through the user
// lookup gets its cookie re-issued.
func (h *Handler) resolveSession(c *gin.Context) (Session, bool) {
	sessionID, _ := c.Cookie(SessionCookie)
	if sessionID != "" {
		session, err := h.Svc.Get(c.Request.Context(), sessionID)
		switch {
		case err == nil:
			c.Set("sessionId", session.ID)
			return session, true
		case errors.Is(err, ErrExpired):
			h.clearSessionCookie(c)
			respond.Error(c, http.StatusGone, "session_expired", "taxonomy session expired, upload again", nil)
			return Session{}, false
		case !errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load session", nil)
			return Session{}, false
		}
	}

	if userID := middleware.UserIDFromContext(c); userID != "" {
		session, err := h.Svc.GetForUser(c.Request.Context(), userID)
		if err == nil {
			c.Set("sessionId", session.ID)
			h.setSessionCookie(c, session)
			return session, true
		}
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrExpired) {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load session", nil)
			return Session{}, false
		}
	}

	respond.Error(c, http.StatusNotFound, "no_session", "no taxonomy uploaded yet", nil)
	return Session{}, false
}

func (h *Handler) setSessionCookie(c *gin.Context, session Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetCookie(SessionCookie, session.ID, maxAge, "/", "", false, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}

func sessionResponse(session Session) gin.H {
	return gin.H{
		"sessionId": session.ID,
		"filename":  session.Filename,
		"nodeCount": session.Taxonomy.NodeCount,
		"sheets":    session.Taxonomy.Sheets,
		"createdAt": session.CreatedAt,
		"expiresAt": session.ExpiresAt,
	}
}
