package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/logistics"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs serves the admin query surface.
// Query parameters: severity, action, search, ordering, limit, offset.
func (h *Handlers) ListAuditLogs(c *gin.Context) {
	f := audit.Filter{
		Severity: audit.Severity(c.Query("severity")),
		Action:   audit.Action(c.Query("action")),
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	}
	var err error
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		fail(c, err)
		return
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		fail(c, err)
		return
	}

	entries, err := h.Audit.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handlers) GetAuditLog(c *gin.Context) {
	e, err := h.Audit.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ingestRequest is what a client may submit. Actor, IP and user agent are
// not accepted; Record stamps them from the request.
type ingestRequest struct {
	Action       audit.Action   `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Severity     audit.Severity `json:"severity"`
	Details      map[string]any `json:"details"`
	Success      *bool          `json:"success"`
	ErrorMessage string         `json:"error_message"`
}

// IngestAuditLog records a client-reported event.
func (h *Handlers) IngestAuditLog(c *gin.Context) {
	var req ingestRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	success := true
	if req.Success != nil {
		success = *req.Success
	}
	e, err := h.Audit.Record(c.Request.Context(), audit.Entry{
		Action:       req.Action,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Severity:     req.Severity,
		Details:      req.Details,
		Success:      success,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", logistics.ErrValidation, key)
	}
	return n, nil
}
