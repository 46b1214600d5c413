package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/auth"
	"logistics-platform/internal/logistics"

	"github.com/gin-gonic/gin"
)

// fail maps a handler error to its response. Authorization errors are only
// recorded; Translate renders them.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case auth.IsAuthorization(err):
		c.Abort()
	case errors.Is(err, logistics.ErrNotFound), errors.Is(err, audit.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	case errors.Is(err, logistics.ErrValidation),
		errors.Is(err, logistics.ErrConflict),
		errors.Is(err, audit.ErrInvalidEntry),
		errors.Is(err, audit.ErrInvalidFilter):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
	}
}

// bind decodes the JSON body into dst, reporting malformed input as a validation error.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", logistics.ErrValidation, err)
	}
	return nil
}

// missing hides whether an object exists from callers outside staff: they
// get the same denial as for an object they do not own.
func missing(c *gin.Context, err error) {
	p := auth.PrincipalFrom(c.Request.Context())
	if errors.Is(err, logistics.ErrNotFound) && !p.IsStaff() {
		deny(c, p, "%s.%s: %v", c.GetString(keyResource), c.GetString(keyAction), err)
		return
	}
	fail(c, err)
}
