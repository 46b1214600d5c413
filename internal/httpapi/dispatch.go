package httpapi

import (
	"net/http"

	"logistics-platform/internal/logistics"

	"github.com/gin-gonic/gin"
)

// CompleteDelivery closes a route: its shipments become Delivered and the
// route Completed. The body optionally carries the actual distance, duration
// and fuel. Open to staff and the route's own driver.
func (h *Handlers) CompleteDelivery(c *gin.Context) {
	ctx := c.Request.Context()
	r, err := h.Stores.Routes.Get(ctx, c.Param("id"))
	if err != nil {
		missing(c, err)
		return
	}
	if !h.allowObject(c, r) {
		return
	}
	if r.Status == logistics.RouteCompleted {
		c.JSON(http.StatusOK, r)
		return
	}
	var actuals logistics.Actuals
	if c.Request.ContentLength != 0 {
		if err := bind(c, &actuals); err != nil {
			fail(c, err)
			return
		}
	}
	done, err := h.Dispatch.CompleteDelivery(ctx, r, actuals)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, done)
}
