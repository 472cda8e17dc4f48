// README: Owner metrics handler: today's rollup, one-shot or live.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"waterline/internal/modules/metrics"
	"waterline/internal/modules/order"
)

type MetricsHandler struct {
	metrics *metrics.Service
}

func NewMetricsHandler(svc *metrics.Service) *MetricsHandler {
	return &MetricsHandler{metrics: svc}
}

// Today serves the rollup for the current local day. With an SSE accept
// header it recomputes and republishes on every order change.
func (h *MetricsHandler) Today(c *gin.Context) {
	if wantsStream(c) {
		h.stream(c)
		return
	}
	t, err := h.metrics.Today(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *MetricsHandler) stream(c *gin.Context) {
	ch := h.metrics.WatchToday(c.Request.Context())
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case res, ok := <-ch:
			if !ok {
				return false
			}
			if res.Err != nil {
				c.SSEvent("error", errorBody(res.Err))
				return !errors.Is(res.Err, order.ErrNeedsIndex)
			}
			c.SSEvent("metrics", res.Today)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
