// README: Owner handlers: order board, lifecycle decisions, assignment, drivers, history.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"waterline/internal/http/middleware"
	"waterline/internal/modules/order"
	"waterline/internal/modules/roles"
	"waterline/internal/types"
)

// DriverDirectory lists active driver profiles for the assignment picker.
type DriverDirectory interface {
	ListActiveByRole(ctx context.Context, role roles.Role) ([]roles.Profile, error)
}

// EventSource reads an order's transition history from the audit log.
type EventSource interface {
	ListByOrder(ctx context.Context, orderID types.ID) ([]order.Event, error)
}

type OwnerHandler struct {
	order   *order.Service
	watcher order.Watcher
	drivers DriverDirectory
	events  EventSource
}

func NewOwnerHandler(svc *order.Service, watcher order.Watcher, drivers DriverDirectory, events EventSource) *OwnerHandler {
	return &OwnerHandler{order: svc, watcher: watcher, drivers: drivers, events: events}
}

// List serves the owner board for one status, live or one-shot. Defaults to
// the PENDING intake column.
func (h *OwnerHandler) List(c *gin.Context) {
	st := order.Status(c.DefaultQuery("status", string(order.StatusPending)))
	if !st.IsValid() {
		writeError(c, http.StatusBadRequest, "unknown status "+string(st))
		return
	}
	if wantsStream(c) {
		streamOrders(c, h.watcher.WatchByStatus(c.Request.Context(), st))
		return
	}
	orders, err := h.order.ListByStatus(c.Request.Context(), st)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}

func (h *OwnerHandler) Confirm(c *gin.Context) {
	o, err := h.order.Confirm(c.Request.Context(), order.ConfirmCommand{
		OrderID:   types.ID(c.Param("id")),
		ActorRole: roles.RoleOwner,
		ActorUID:  middleware.CallerUID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OwnerHandler) Revert(c *gin.Context) {
	o, err := h.order.Revert(c.Request.Context(), order.RevertCommand{
		OrderID:   types.ID(c.Param("id")),
		ActorRole: roles.RoleOwner,
		ActorUID:  middleware.CallerUID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OwnerHandler) Cancel(c *gin.Context) {
	o, err := h.order.Cancel(c.Request.Context(), order.CancelCommand{
		OrderID:   types.ID(c.Param("id")),
		ActorRole: roles.RoleOwner,
		ActorUID:  middleware.CallerUID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type assignReq struct {
	DriverUID string `json:"driverUid" binding:"required"`
}

// Assign attaches a driver picked from the directory. The display name is
// denormalised here so order lists never need a profile join.
func (h *OwnerHandler) Assign(c *gin.Context) {
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p, err := h.profile(c, types.ID(req.DriverUID))
	if errors.Is(err, roles.ErrNoRole) {
		writeError(c, http.StatusBadRequest, "driver is not in the active directory")
		return
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}
	name := p.Name
	if name == "" {
		name = req.DriverUID
	}
	o, err := h.order.Assign(c.Request.Context(), order.AssignCommand{
		OrderID:    types.ID(c.Param("id")),
		ActorRole:  roles.RoleOwner,
		ActorUID:   middleware.CallerUID(c),
		DriverUID:  types.ID(req.DriverUID),
		DriverName: name,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OwnerHandler) profile(c *gin.Context, uid types.ID) (*roles.Profile, error) {
	profiles, err := h.drivers.ListActiveByRole(c.Request.Context(), roles.RoleDriver)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].UID == uid {
			return &profiles[i], nil
		}
	}
	return nil, roles.ErrNoRole
}

// Drivers lists the active driver directory.
func (h *OwnerHandler) Drivers(c *gin.Context) {
	profiles, err := h.drivers.ListActiveByRole(c.Request.Context(), roles.RoleDriver)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": profiles})
}

// Events serves the transition history of one order, oldest first.
func (h *OwnerHandler) Events(c *gin.Context) {
	if h.events == nil {
		writeJSON(c, http.StatusOK, gin.H{"events": []order.Event{}})
		return
	}
	events, err := h.events.ListByOrder(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if events == nil {
		events = []order.Event{}
	}
	writeJSON(c, http.StatusOK, gin.H{"events": events})
}
