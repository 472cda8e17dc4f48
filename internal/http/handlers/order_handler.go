// README: Customer handlers: create an order, fetch one, list history.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"waterline/internal/modules/order"
	"waterline/internal/types"
)

type OrderHandler struct {
	order *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{order: svc}
}

type createOrderReq struct {
	CustomerUID   string     `json:"customerUid" binding:"required"`
	CustomerName  string     `json:"customerName" binding:"required"`
	CustomerPhone string     `json:"customerPhone" binding:"required"`
	Address       string     `json:"address" binding:"required"`
	Landmark      string     `json:"landmark"`
	WaterType     string     `json:"waterType" binding:"required"`
	Liters        float64    `json:"liters" binding:"required"`
	PaymentMethod string     `json:"paymentMethod" binding:"required"`
	ScheduleKind  string     `json:"scheduleKind" binding:"required"`
	ScheduledFor  *time.Time `json:"scheduledFor"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	o, err := h.order.Create(c.Request.Context(), order.CreateCommand{
		CustomerUID:   types.ID(req.CustomerUID),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Address:       req.Address,
		Landmark:      req.Landmark,
		WaterType:     req.WaterType,
		Liters:        req.Liters,
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		ScheduleKind:  order.ScheduleKind(req.ScheduleKind),
		ScheduledFor:  req.ScheduledFor,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing order id")
		return
	}
	o, err := h.order.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) History(c *gin.Context) {
	uid := c.Param("uid")
	if uid == "" {
		writeError(c, http.StatusBadRequest, "missing customer uid")
		return
	}
	orders, err := h.order.History(c.Request.Context(), types.ID(uid))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": orders})
}
