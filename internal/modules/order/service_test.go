// README: Lifecycle engine tests: guarded transitions, claim path, races, audit trail.
package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waterline/internal/modules/roles"
	"waterline/internal/types"
)

func newTestService() (*Service, *memStore, *memAudit) {
	store := newMemStore()
	audit := &memAudit{}
	return NewService(store, audit, nil), store, audit
}

func validCreate(customer types.ID) CreateCommand {
	return CreateCommand{
		CustomerUID:   customer,
		CustomerName:  "Umm Said",
		CustomerPhone: "0501234567",
		Address:       "12 Harbor Road",
		WaterType:     "mineral",
		Liters:        200,
		PaymentMethod: PayCash,
		ScheduleKind:  ScheduleNow,
	}
}

func mustCreate(t *testing.T, svc *Service, customer types.ID) *Order {
	t.Helper()
	o, err := svc.Create(context.Background(), validCreate(customer))
	require.NoError(t, err)
	return o
}

func TestCreate(t *testing.T) {
	svc, _, audit := newTestService()
	o := mustCreate(t, svc, "c1")

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, StatusPending, o.Status)
	assert.Nil(t, o.DriverUID)
	assert.Nil(t, o.DriverName)
	assert.False(t, o.CreatedAt.IsZero())

	events := audit.all()
	require.Len(t, events, 1)
	assert.Equal(t, StatusPending, events[0].ToStatus)
	assert.Equal(t, "customer", events[0].ActorRole)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateCommand)
	}{
		{"missing customer uid", func(c *CreateCommand) { c.CustomerUID = "" }},
		{"missing name", func(c *CreateCommand) { c.CustomerName = "" }},
		{"missing phone", func(c *CreateCommand) { c.CustomerPhone = "" }},
		{"missing address", func(c *CreateCommand) { c.Address = "" }},
		{"missing water type", func(c *CreateCommand) { c.WaterType = "" }},
		{"zero liters", func(c *CreateCommand) { c.Liters = 0 }},
		{"negative liters", func(c *CreateCommand) { c.Liters = -50 }},
		{"bad payment method", func(c *CreateCommand) { c.PaymentMethod = "cheque" }},
		{"bad schedule kind", func(c *CreateCommand) { c.ScheduleKind = "whenever" }},
		{"later without time", func(c *CreateCommand) { c.ScheduleKind = ScheduleLater; c.ScheduledFor = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := validCreate("c1")
			tc.mutate(&cmd)
			_, err := svc.Create(ctx, cmd)
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}
}

// Creating a scheduled order and reading it back preserves the target
// instant exactly.
func TestScheduledRoundTrip(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	target := time.Date(2026, 9, 2, 17, 30, 0, 0, time.UTC)
	cmd := validCreate("c1")
	cmd.ScheduleKind = ScheduleLater
	cmd.ScheduledFor = &target

	created, err := svc.Create(ctx, cmd)
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, ScheduleLater, got.ScheduleKind)
	require.NotNil(t, got.ScheduledFor)
	assert.True(t, got.ScheduledFor.Equal(target))
}

func TestHappyPath(t *testing.T) {
	svc, _, audit := newTestService()
	ctx := context.Background()
	o := mustCreate(t, svc, "c1")

	o2, err := svc.Confirm(ctx, ConfirmCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o2.Status)

	o3, err := svc.StartDelivery(ctx, StartDeliveryCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, DriverUID: "d1", DriverName: "Sami"})
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, o3.Status)
	require.NotNil(t, o3.DriverUID)
	assert.Equal(t, types.ID("d1"), *o3.DriverUID)
	assert.Equal(t, "Sami", *o3.DriverName)

	o4, err := svc.MarkDelivered(ctx, MarkDeliveredCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, DriverUID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, o4.Status)

	events := audit.all()
	require.Len(t, events, 4)
	assert.Equal(t, StatusConfirmed, events[1].ToStatus)
	assert.Equal(t, StatusOutForDelivery, events[2].ToStatus)
	assert.Equal(t, StatusDelivered, events[3].ToStatus)
}

func TestRevert(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	o := mustCreate(t, svc, "c1")

	_, err := svc.Confirm(ctx, ConfirmCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)

	o2, err := svc.Revert(ctx, RevertCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o2.Status)

	// Reverting again is stale: the order is pending now.
	_, err = svc.Revert(ctx, RevertCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	assert.True(t, IsStale(err))
}

func TestCancel(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	pending := mustCreate(t, svc, "c1")
	o, err := svc.Cancel(ctx, CancelCommand{OrderID: pending.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)

	confirmed := mustCreate(t, svc, "c2")
	_, err = svc.Confirm(ctx, ConfirmCommand{OrderID: confirmed.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)
	o, err = svc.Cancel(ctx, CancelCommand{OrderID: confirmed.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
}

// Once DELIVERED or CANCELLED, no further transition succeeds and the stored
// status never changes.
func TestTerminalStates(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	o := mustCreate(t, svc, "c1")
	_, err := svc.Cancel(ctx, CancelCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, ConfirmCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	assert.True(t, IsStale(err))
	_, err = svc.Cancel(ctx, CancelCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	assert.True(t, IsStale(err))
	_, err = svc.Assign(ctx, AssignCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1", DriverUID: "d1", DriverName: "Sami"})
	assert.True(t, IsStale(err))

	got, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Nil(t, got.DriverUID)
}

// A driver starting delivery on an order the owner cancelled underfoot gets
// the distinct "no longer confirmed" rejection and the store is unchanged.
func TestStartOnCancelledOrder(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	o := mustCreate(t, svc, "c1")
	_, err := svc.Confirm(ctx, ConfirmCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, CancelCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)

	_, err = svc.StartDelivery(ctx, StartDeliveryCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, DriverUID: "d1", DriverName: "Sami"})
	require.True(t, IsStale(err))
	assert.Contains(t, err.Error(), "no longer confirmed")

	got, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Nil(t, got.DriverUID)
}

// The two stale reasons stay distinct: not-yet-out-for-delivery vs
// no-longer-confirmed.
func TestStaleReasonsDistinct(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o := mustCreate(t, svc, "c1")
	_, err := svc.Confirm(ctx, ConfirmCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)

	// Delivering a CONFIRMED order: not yet out for delivery.
	_, err = svc.MarkDelivered(ctx, MarkDeliveredCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, DriverUID: "d1"})
	require.True(t, IsStale(err))
	assert.Contains(t, err.Error(), "not yet out for delivery")

	_, err = svc.StartDelivery(ctx, StartDeliveryCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, DriverUID: "d1", DriverName: "Sami"})
	require.NoError(t, err)

	// Starting an OUT_FOR_DELIVERY order: already out for delivery.
	_, err = svc.StartDelivery(ctx, StartDeliveryCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, DriverUID: "d2", DriverName: "Nour"})
	require.True(t, IsStale(err))
	assert.Contains(t, err.Error(), "already out for delivery")
}

func TestForbiddenActors(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	o := mustCreate(t, svc, "c1")

	_, err := svc.Confirm(ctx, ConfirmCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, ActorUID: "d1"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Cancel(ctx, CancelCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, ActorUID: "d1"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Assign(ctx, AssignCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, ActorUID: "d1", DriverUID: "d1", DriverName: "Sami"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.StartDelivery(ctx, StartDeliveryCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, DriverUID: "owner1", DriverName: "Boss"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.MarkDelivered(ctx, MarkDeliveredCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, DriverUID: "owner1"})
	assert.ErrorIs(t, err, ErrForbidden)
}

// Assigning the same driver twice changes only the update timestamp.
func TestAssignIdempotent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	o := mustCreate(t, svc, "c1")

	first, err := svc.Assign(ctx, AssignCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1", DriverUID: "d1", DriverName: "Sami"})
	require.NoError(t, err)
	require.NotNil(t, first.DriverUID)

	time.Sleep(2 * time.Millisecond)
	second, err := svc.Assign(ctx, AssignCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1", DriverUID: "d1", DriverName: "Sami"})
	require.NoError(t, err)

	assert.Equal(t, *first.DriverUID, *second.DriverUID)
	assert.Equal(t, *first.DriverName, *second.DriverName)
	assert.Equal(t, first.Status, second.Status)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

// A driver claiming an unassigned CONFIRMED order gets assignment and status
// advance in one step; no intermediate assigned-but-confirmed state exists.
func TestClaimUnassigned(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o := mustCreate(t, svc, "c1")
	_, err := svc.Confirm(ctx, ConfirmCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)

	queue, err := svc.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	claimed, err := svc.StartDelivery(ctx, StartDeliveryCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, DriverUID: "dX", DriverName: "Khaled"})
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, claimed.Status)
	require.NotNil(t, claimed.DriverUID)
	assert.Equal(t, types.ID("dX"), *claimed.DriverUID)

	queue, err = svc.Queue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

// Pre-assignment by the owner survives the driver's start: the claim path
// only self-assigns when the order is unassigned.
func TestStartKeepsExistingAssignment(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o := mustCreate(t, svc, "c1")
	_, err := svc.Confirm(ctx, ConfirmCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)
	_, err = svc.Assign(ctx, AssignCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1", DriverUID: "d1", DriverName: "Sami"})
	require.NoError(t, err)

	started, err := svc.StartDelivery(ctx, StartDeliveryCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, DriverUID: "d2", DriverName: "Nour"})
	require.NoError(t, err)
	require.NotNil(t, started.DriverUID)
	assert.Equal(t, types.ID("d1"), *started.DriverUID)
}

// Two drivers claiming the same unassigned order concurrently: exactly one
// wins, the other gets a stale rejection.
func TestConcurrentDoubleClaim(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	o := mustCreate(t, svc, "c1")
	_, err := svc.Confirm(ctx, ConfirmCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)

	drivers := []types.ID{"d1", "d2", "d3"}
	errs := make(chan error, len(drivers))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, d := range drivers {
		wg.Add(1)
		go func(did types.ID) {
			defer wg.Done()
			<-start
			_, err := svc.StartDelivery(ctx, StartDeliveryCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, DriverUID: did, DriverName: string(did)})
			errs <- err
		}(d)
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		require.True(t, IsStale(err), "unexpected error: %v", err)
	}
	require.Equal(t, 1, success)

	got, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, got.Status)
	require.NotNil(t, got.DriverUID)
	assert.Equal(t, string(*got.DriverUID), *got.DriverName)
}

// Owner cancel racing a driver start: one wins, the loser is rejected, and
// the stored state matches the winner.
func TestConcurrentCancelVsStart(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	o := mustCreate(t, svc, "c1")
	_, err := svc.Confirm(ctx, ConfirmCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.Cancel(ctx, CancelCommand{OrderID: o.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := svc.StartDelivery(ctx, StartDeliveryCommand{OrderID: o.ID, ActorRole: roles.RoleDriver, DriverUID: "d1", DriverName: "Sami"})
		errs <- err
	}()
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
		} else {
			require.True(t, IsStale(err), "unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, success)

	got, err := store.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Contains(t, []Status{StatusCancelled, StatusOutForDelivery}, got.Status)
}

func TestHistoryAndLists(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	a := mustCreate(t, svc, "c1")
	mustCreate(t, svc, "c1")
	mustCreate(t, svc, "c2")

	history, err := svc.History(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	pending, err := svc.ListByStatus(ctx, StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	_, err = svc.Confirm(ctx, ConfirmCommand{OrderID: a.ID, ActorRole: roles.RoleOwner, ActorUID: "owner1"})
	require.NoError(t, err)
	_, err = svc.StartDelivery(ctx, StartDeliveryCommand{OrderID: a.ID, ActorRole: roles.RoleDriver, DriverUID: "d1", DriverName: "Sami"})
	require.NoError(t, err)

	mine, err := svc.AssignedTo(ctx, "d1", StatusOutForDelivery)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	_, err = svc.ListByStatus(ctx, "shipped")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestGetNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
