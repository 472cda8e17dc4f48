// README: Order lifecycle engine: guarded transitions, assignment, and the claim path.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waterline/internal/modules/roles"
	"waterline/internal/types"
)

var (
	ErrNotFound   = errors.New("order not found")
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("actor may not perform this transition")
)

// StaleError reports a transition whose precondition no longer held at the
// re-check inside the store transaction. It is recoverable: the caller should
// refresh and decide again, never auto-retry.
type StaleError struct {
	OrderID types.ID
	Status  Status // status observed at the re-check
	Reason  string
}

func (e *StaleError) Error() string { return e.Reason }

// IsStale reports whether err is a recoverable stale-state rejection.
func IsStale(err error) bool {
	var se *StaleError
	return errors.As(err, &se)
}

// Storage is the per-document contract the engine needs from the order store.
// Mutate must run fn against a fresh read of the document and apply the
// mutation atomically with respect to that read; fn returning an error aborts
// with no write.
type Storage interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	Mutate(ctx context.Context, id types.ID, fn func(o *Order) error) (*Order, error)
	ListByStatus(ctx context.Context, st Status) ([]Order, error)
	ListByCustomer(ctx context.Context, customerUID types.ID) ([]Order, error)
	ListAssigned(ctx context.Context, driverUID types.ID, st Status) ([]Order, error)
	ListUnassignedConfirmed(ctx context.Context) ([]Order, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]Order, error)
}

// Auditor appends transition events to the append-only log. Appends are
// best-effort: an audit failure never fails the transition that caused it.
type Auditor interface {
	Append(ctx context.Context, e *Event) error
}

// Geocoder resolves a delivery address to coordinates, best-effort.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*types.Point, error)
}

type Service struct {
	store    Storage
	audit    Auditor
	geocoder Geocoder
	now      func() time.Time
}

func NewService(store Storage, audit Auditor, geocoder Geocoder) *Service {
	return &Service{store: store, audit: audit, geocoder: geocoder, now: time.Now}
}

type CreateCommand struct {
	CustomerUID   types.ID
	CustomerName  string
	CustomerPhone string
	Address       string
	Landmark      string
	WaterType     string
	Liters        float64
	PaymentMethod PaymentMethod
	ScheduleKind  ScheduleKind
	ScheduledFor  *time.Time
}

type ConfirmCommand struct {
	OrderID   types.ID
	ActorRole roles.Role
	ActorUID  types.ID
}

type RevertCommand struct {
	OrderID   types.ID
	ActorRole roles.Role
	ActorUID  types.ID
}

type CancelCommand struct {
	OrderID   types.ID
	ActorRole roles.Role
	ActorUID  types.ID
}

type AssignCommand struct {
	OrderID    types.ID
	ActorRole  roles.Role
	ActorUID   types.ID
	DriverUID  types.ID
	DriverName string
}

type StartDeliveryCommand struct {
	OrderID    types.ID
	ActorRole  roles.Role
	DriverUID  types.ID
	DriverName string
}

type MarkDeliveredCommand struct {
	OrderID   types.ID
	ActorRole roles.Role
	DriverUID types.ID
}

// Create validates and persists a new PENDING order with no driver. The
// address is geocoded best-effort; geocoding failure never blocks creation.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	o := &Order{
		CustomerUID:   cmd.CustomerUID,
		CustomerName:  cmd.CustomerName,
		CustomerPhone: cmd.CustomerPhone,
		Address:       cmd.Address,
		Landmark:      cmd.Landmark,
		WaterType:     cmd.WaterType,
		Liters:        cmd.Liters,
		PaymentMethod: cmd.PaymentMethod,
		ScheduleKind:  cmd.ScheduleKind,
		ScheduledFor:  cmd.ScheduledFor,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.geocoder != nil {
		if pt, err := s.geocoder.Geocode(ctx, cmd.Address); err == nil {
			o.Geo = pt
		}
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	s.append(ctx, o.ID, "", StatusPending, "customer", &cmd.CustomerUID)
	return o, nil
}

func validateCreate(cmd CreateCommand) error {
	switch {
	case cmd.CustomerUID == "":
		return fmt.Errorf("%w: customer uid is required", ErrBadRequest)
	case cmd.CustomerName == "" || cmd.CustomerPhone == "":
		return fmt.Errorf("%w: customer name and phone are required", ErrBadRequest)
	case cmd.Address == "":
		return fmt.Errorf("%w: delivery address is required", ErrBadRequest)
	case cmd.WaterType == "":
		return fmt.Errorf("%w: water type is required", ErrBadRequest)
	case cmd.Liters <= 0:
		return fmt.Errorf("%w: liters must be positive", ErrBadRequest)
	case !cmd.PaymentMethod.IsValid():
		return fmt.Errorf("%w: unknown payment method %q", ErrBadRequest, cmd.PaymentMethod)
	case !cmd.ScheduleKind.IsValid():
		return fmt.Errorf("%w: unknown schedule kind %q", ErrBadRequest, cmd.ScheduleKind)
	case cmd.ScheduleKind == ScheduleLater && cmd.ScheduledFor == nil:
		return fmt.Errorf("%w: scheduled delivery requires a target time", ErrBadRequest)
	}
	return nil
}

// Confirm moves PENDING -> CONFIRMED (owner).
func (s *Service) Confirm(ctx context.Context, cmd ConfirmCommand) (*Order, error) {
	return s.transition(ctx, cmd.OrderID, cmd.ActorRole, cmd.ActorUID, StatusPending, StatusConfirmed)
}

// Revert moves CONFIRMED back to PENDING (owner). CANCELLED has no such
// recovery path; it is intentionally terminal.
func (s *Service) Revert(ctx context.Context, cmd RevertCommand) (*Order, error) {
	return s.transition(ctx, cmd.OrderID, cmd.ActorRole, cmd.ActorUID, StatusConfirmed, StatusPending)
}

// Cancel moves PENDING or CONFIRMED to CANCELLED (owner).
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Order, error) {
	if cmd.ActorRole != roles.RoleOwner {
		return nil, ErrForbidden
	}
	var from Status
	o, err := s.store.Mutate(ctx, cmd.OrderID, func(o *Order) error {
		if !RoleCanTransition(cmd.ActorRole, o.Status, StatusCancelled) {
			return staleFor(o, StatusCancelled)
		}
		from = o.Status
		o.Status = StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.append(ctx, o.ID, from, StatusCancelled, string(cmd.ActorRole), &cmd.ActorUID)
	return o, nil
}

// Assign attaches a driver while the order is still PENDING or CONFIRMED.
// Reassigning the same driver is a no-op effect-wise but still bumps the
// update timestamp. Assignment never changes status.
func (s *Service) Assign(ctx context.Context, cmd AssignCommand) (*Order, error) {
	if cmd.ActorRole != roles.RoleOwner {
		return nil, ErrForbidden
	}
	if cmd.DriverUID == "" || cmd.DriverName == "" {
		return nil, fmt.Errorf("%w: driver uid and name are required", ErrBadRequest)
	}
	o, err := s.store.Mutate(ctx, cmd.OrderID, func(o *Order) error {
		if !o.Assignable() {
			return &StaleError{OrderID: o.ID, Status: o.Status, Reason: "order is no longer assignable"}
		}
		uid, name := cmd.DriverUID, cmd.DriverName
		o.DriverUID = &uid
		o.DriverName = &name
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.append(ctx, o.ID, o.Status, o.Status, string(cmd.ActorRole), &cmd.ActorUID)
	return o, nil
}

// StartDelivery moves CONFIRMED -> OUT_FOR_DELIVERY (driver). An unassigned
// order is claimed in the same mutation: the driver is attached and the
// status advanced atomically with respect to the fresh read, so no
// "claimed but still confirmed" intermediate state is ever persisted.
func (s *Service) StartDelivery(ctx context.Context, cmd StartDeliveryCommand) (*Order, error) {
	if cmd.ActorRole != roles.RoleDriver {
		return nil, ErrForbidden
	}
	o, err := s.store.Mutate(ctx, cmd.OrderID, func(o *Order) error {
		if o.Status != StatusConfirmed {
			if o.Status == StatusOutForDelivery {
				return &StaleError{OrderID: o.ID, Status: o.Status, Reason: "order is already out for delivery"}
			}
			return &StaleError{OrderID: o.ID, Status: o.Status, Reason: "order is no longer confirmed"}
		}
		if !o.Assigned() {
			uid, name := cmd.DriverUID, cmd.DriverName
			o.DriverUID = &uid
			o.DriverName = &name
		}
		o.Status = StatusOutForDelivery
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.append(ctx, o.ID, StatusConfirmed, StatusOutForDelivery, string(cmd.ActorRole), &cmd.DriverUID)
	return o, nil
}

// MarkDelivered moves OUT_FOR_DELIVERY -> DELIVERED (driver).
func (s *Service) MarkDelivered(ctx context.Context, cmd MarkDeliveredCommand) (*Order, error) {
	if cmd.ActorRole != roles.RoleDriver {
		return nil, ErrForbidden
	}
	o, err := s.store.Mutate(ctx, cmd.OrderID, func(o *Order) error {
		if o.Status != StatusOutForDelivery {
			return staleFor(o, StatusDelivered)
		}
		o.Status = StatusDelivered
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.append(ctx, o.ID, StatusOutForDelivery, StatusDelivered, string(cmd.ActorRole), &cmd.DriverUID)
	return o, nil
}

// transition applies a fixed from -> to edge for the given actor.
func (s *Service) transition(ctx context.Context, id types.ID, actor roles.Role, actorUID types.ID, from, to Status) (*Order, error) {
	if !RoleCanTransition(actor, from, to) {
		return nil, ErrForbidden
	}
	o, err := s.store.Mutate(ctx, id, func(o *Order) error {
		if o.Status != from {
			return staleFor(o, to)
		}
		o.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.append(ctx, o.ID, from, to, string(actor), &actorUID)
	return o, nil
}

// staleFor picks the distinct human-readable reason for a failed
// precondition, so callers can tell "no longer confirmed" apart from
// "not yet out for delivery" and from the terminal cases.
func staleFor(o *Order, to Status) *StaleError {
	var reason string
	switch {
	case o.Status == StatusDelivered:
		reason = "order is already delivered"
	case o.Status == StatusCancelled:
		reason = "order was cancelled"
	case to == StatusDelivered:
		reason = "order is not yet out for delivery"
	case to == StatusConfirmed:
		reason = "order is no longer pending"
	case to == StatusPending, to == StatusOutForDelivery:
		reason = "order is no longer confirmed"
	default:
		reason = fmt.Sprintf("order is %s, not eligible for %s", o.Status, to)
	}
	return &StaleError{OrderID: o.ID, Status: o.Status, Reason: reason}
}

func (s *Service) append(ctx context.Context, id types.ID, from, to Status, actorRole string, actorUID *types.ID) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Append(ctx, &Event{
		OrderID:    id,
		FromStatus: from,
		ToStatus:   to,
		ActorRole:  actorRole,
		ActorUID:   actorUID,
		CreatedAt:  s.now().UTC(),
	})
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByStatus(ctx context.Context, st Status) ([]Order, error) {
	if !st.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrBadRequest, st)
	}
	return s.store.ListByStatus(ctx, st)
}

func (s *Service) History(ctx context.Context, customerUID types.ID) ([]Order, error) {
	return s.store.ListByCustomer(ctx, customerUID)
}

func (s *Service) AssignedTo(ctx context.Context, driverUID types.ID, st Status) ([]Order, error) {
	if !st.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrBadRequest, st)
	}
	return s.store.ListAssigned(ctx, driverUID, st)
}

// Queue lists the unassigned CONFIRMED orders a driver may claim.
func (s *Service) Queue(ctx context.Context) ([]Order, error) {
	return s.store.ListUnassignedConfirmed(ctx)
}
