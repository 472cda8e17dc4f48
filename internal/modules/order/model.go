// README: Order document, status definitions, and the transition table.
package order

import (
	"time"

	"waterline/internal/modules/roles"
	"waterline/internal/types"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// AllStatuses lists every defined status; aggregation reports a count for
// each, zeros included.
var AllStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type PaymentMethod string

const (
	PayCash     PaymentMethod = "cash"
	PayTransfer PaymentMethod = "transfer"
)

func (p PaymentMethod) IsValid() bool { return p == PayCash || p == PayTransfer }

// ScheduleKind distinguishes immediate orders from ones with a target
// delivery instant.
type ScheduleKind string

const (
	ScheduleNow   ScheduleKind = "now"
	ScheduleLater ScheduleKind = "later"
)

func (k ScheduleKind) IsValid() bool { return k == ScheduleNow || k == ScheduleLater }

// Order is one document in the orders collection. Orders are never deleted;
// terminal statuses keep the document as a historical record.
type Order struct {
	ID            types.ID      `firestore:"-" json:"id"`
	CustomerUID   types.ID      `firestore:"customerUid" json:"customerUid"`
	CustomerName  string        `firestore:"customerName" json:"customerName"`
	CustomerPhone string        `firestore:"customerPhone" json:"customerPhone"`
	Address       string        `firestore:"address" json:"address"`
	Landmark      string        `firestore:"landmark" json:"landmark,omitempty"`
	Geo           *types.Point  `firestore:"geo" json:"geo,omitempty"`
	WaterType     string        `firestore:"waterType" json:"waterType"`
	Liters        float64       `firestore:"liters" json:"liters"`
	PaymentMethod PaymentMethod `firestore:"paymentMethod" json:"paymentMethod"`
	ScheduleKind  ScheduleKind  `firestore:"scheduleKind" json:"scheduleKind"`
	ScheduledFor  *time.Time    `firestore:"scheduledFor" json:"scheduledFor,omitempty"`
	Status        Status        `firestore:"status" json:"status"`
	DriverUID     *types.ID     `firestore:"driverUid" json:"driverUid"`
	DriverName    *string       `firestore:"driverName" json:"driverName"`
	CreatedAt     time.Time     `firestore:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time     `firestore:"updatedAt" json:"updatedAt"`
}

// Assignable reports whether a driver may still be attached to the order.
func (o *Order) Assignable() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

// Assigned reports whether the order carries a driver.
func (o *Order) Assigned() bool {
	return o.DriverUID != nil
}

// AllowedTransitions represents the order state flow (diagram) as code.
// CONFIRMED -> PENDING is the owner's single reverse transition; the two
// terminal states have no outgoing edges.
var AllowedTransitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPending, StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type transitionKey struct {
	From Status
	To   Status
}

// transitionRole maps each edge of the state flow to the single role allowed
// to perform it. Defined once here; every actor surface goes through it.
var transitionRole = map[transitionKey]roles.Role{
	{StatusPending, StatusConfirmed}:        roles.RoleOwner,
	{StatusPending, StatusCancelled}:        roles.RoleOwner,
	{StatusConfirmed, StatusPending}:        roles.RoleOwner,
	{StatusConfirmed, StatusCancelled}:      roles.RoleOwner,
	{StatusConfirmed, StatusOutForDelivery}: roles.RoleDriver,
	{StatusOutForDelivery, StatusDelivered}: roles.RoleDriver,
}

// RoleCanTransition reports whether actor may move an order from -> to.
func RoleCanTransition(actor roles.Role, from, to Status) bool {
	return CanTransition(from, to) && transitionRole[transitionKey{from, to}] == actor
}

// Event is one row of the append-only transition audit log.
type Event struct {
	ID         int64     `json:"id"`
	OrderID    types.ID  `json:"orderId"`
	FromStatus Status    `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	ActorRole  string    `json:"actorRole"`
	ActorUID   *types.ID `json:"actorUid,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
