// README: Base handler utilities: JSON helpers, error mapping, SSE snapshot streaming.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"waterline/internal/modules/order"
	"waterline/internal/modules/roles"
	"waterline/internal/modules/settings"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError maps module errors onto the HTTP taxonomy. Stale
// transitions are 409 with the distinct reason; a missing index is 503 with
// an operator-actionable message, never a generic failure.
func writeDomainError(c *gin.Context, err error) {
	var stale *order.StaleError
	switch {
	case errors.Is(err, order.ErrBadRequest), errors.Is(err, settings.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.As(err, &stale):
		writeJSON(c, http.StatusConflict, gin.H{"error": stale.Reason, "status": stale.Status, "stale": true})
	case errors.Is(err, order.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, roles.ErrNoRole):
		writeJSON(c, http.StatusForbidden, gin.H{"error": "access denied", "signOut": true})
	case errors.Is(err, order.ErrNeedsIndex):
		writeError(c, http.StatusServiceUnavailable, "the order store is missing a composite index for this query; provision it and retry")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// wantsStream reports whether the client asked for a live SSE feed instead
// of a one-shot list.
func wantsStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}

// streamOrders relays full-replace snapshots as SSE events until the client
// disconnects or the subscription ends. A needs-index error terminates the
// stream (the remediation is operator-side); transient errors are reported
// and the stream stays open.
func streamOrders(c *gin.Context, ch <-chan order.Snapshot) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			if snap.Err != nil {
				c.SSEvent("error", errorBody(snap.Err))
				return !errors.Is(snap.Err, order.ErrNeedsIndex)
			}
			c.SSEvent("orders", snap.Orders)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func errorBody(err error) gin.H {
	if errors.Is(err, order.ErrNeedsIndex) {
		return gin.H{"error": "the order store is missing a composite index for this query", "needsIndex": true}
	}
	return gin.H{"error": "snapshot unavailable, retrying"}
}
