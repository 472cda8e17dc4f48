// README: Driver handlers: claim queue, own deliveries, start and complete runs.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"waterline/internal/http/middleware"
	"waterline/internal/modules/order"
	"waterline/internal/modules/roles"
	"waterline/internal/types"
)

// ProfileLookup resolves a full profile for an authenticated actor, used to
// denormalise the driver display name onto claimed orders.
type ProfileLookup interface {
	Lookup(ctx context.Context, uid types.ID) (*roles.Profile, error)
}

type DriverHandler struct {
	order    *order.Service
	watcher  order.Watcher
	profiles ProfileLookup
}

func NewDriverHandler(svc *order.Service, watcher order.Watcher, profiles ProfileLookup) *DriverHandler {
	return &DriverHandler{order: svc, watcher: watcher, profiles: profiles}
}

// Queue serves the unassigned CONFIRMED orders any driver may claim. With an
// SSE accept header it stays open and republishes on every change.
func (h *DriverHandler) Queue(c *gin.Context) {
	if wantsStream(c) {
		streamOrders(c, h.watcher.WatchUnassignedConfirmed(c.Request.Context()))
		return
	}
	orders, err := h.order.Queue(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}

// Mine serves the caller's assigned orders in one status, live or one-shot.
// Defaults to the active delivery run.
func (h *DriverHandler) Mine(c *gin.Context) {
	st := order.Status(c.DefaultQuery("status", string(order.StatusOutForDelivery)))
	if !st.IsValid() {
		writeError(c, http.StatusBadRequest, "unknown status "+string(st))
		return
	}
	uid := middleware.CallerUID(c)
	if wantsStream(c) {
		streamOrders(c, h.watcher.WatchAssigned(c.Request.Context(), uid, st))
		return
	}
	orders, err := h.order.AssignedTo(c.Request.Context(), uid, st)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}

// Start begins delivery of an order, claiming it when unassigned.
func (h *DriverHandler) Start(c *gin.Context) {
	uid := middleware.CallerUID(c)
	name := h.driverName(c, uid)
	o, err := h.order.StartDelivery(c.Request.Context(), order.StartDeliveryCommand{
		OrderID:    types.ID(c.Param("id")),
		ActorRole:  roles.RoleDriver,
		DriverUID:  uid,
		DriverName: name,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

// Delivered completes an active delivery run.
func (h *DriverHandler) Delivered(c *gin.Context) {
	o, err := h.order.MarkDelivered(c.Request.Context(), order.MarkDeliveredCommand{
		OrderID:   types.ID(c.Param("id")),
		ActorRole: roles.RoleDriver,
		DriverUID: middleware.CallerUID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

// driverName resolves the caller's display name, falling back to the uid so a
// profile hiccup never blocks a claim.
func (h *DriverHandler) driverName(c *gin.Context, uid types.ID) string {
	if h.profiles != nil {
		if p, err := h.profiles.Lookup(c.Request.Context(), uid); err == nil && p.Name != "" {
			return p.Name
		}
	}
	return string(uid)
}
