package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/farm-to-table/events"
	"github.com/yeremiapane/farm-to-table/models"
	"gorm.io/gorm"
)

type stateFixture struct {
	db     *gorm.DB
	buyer  models.User
	carrot models.FoodItem
	kale   models.FoodItem
	placer *OrderService
	sm     *OrderStateMachine
	rec    *recorder
}

func newStateFixture(t *testing.T) *stateFixture {
	db := setupTestDB(t)
	rec := &recorder{}
	return &stateFixture{
		db:     db,
		buyer:  seedUser(t, db, "buyer@example.com", models.RoleUser),
		carrot: seedFood(t, db, "Carrot", 10, 10),
		kale:   seedFood(t, db, "Kale", 20, 4),
		placer: NewOrderService(db, DefaultPricing(), nil),
		sm:     NewOrderStateMachine(db, rec),
		rec:    rec,
	}
}

// place orders 3 carrots and 1 kale (50 + 50 delivery).
func (f *stateFixture) place(t *testing.T) *models.Order {
	order, err := f.placer.PlaceOrder(context.Background(), placeInput(f.buyer.ID, 100,
		LineItemInput{FoodID: f.carrot.ID, Quantity: 3},
		LineItemInput{FoodID: f.kale.ID, Quantity: 1}))
	require.NoError(t, err)
	return order
}

func (f *stateFixture) owner() Principal {
	return Principal{UserID: f.buyer.ID, Role: models.RoleUser}
}

func TestCancelReleasesStock(t *testing.T) {
	f := newStateFixture(t)
	order := f.place(t)
	require.Equal(t, 7, stockOf(t, f.db, f.carrot.ID))

	cancelled, err := f.sm.Cancel(context.Background(), order.ID, f.owner())
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, 10, stockOf(t, f.db, f.carrot.ID))
	assert.Equal(t, 4, stockOf(t, f.db, f.kale.ID))
	assert.Equal(t, []string{events.EventOrderCancelled, events.EventStockChanged, events.EventStockChanged}, f.rec.types())
}

func TestCancelTwiceReleasesOnce(t *testing.T) {
	f := newStateFixture(t)
	order := f.place(t)

	_, err := f.sm.Cancel(context.Background(), order.ID, f.owner())
	require.NoError(t, err)
	_, err = f.sm.Cancel(context.Background(), order.ID, f.owner())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.EqualError(t, err, "Cannot cancel order. Order is already being processed.")
	assert.Equal(t, 10, stockOf(t, f.db, f.carrot.ID))
}

func TestCancelRequiresOwnerOrAdmin(t *testing.T) {
	f := newStateFixture(t)
	order := f.place(t)
	stranger := seedUser(t, f.db, "stranger@example.com", models.RoleUser)

	_, err := f.sm.Cancel(context.Background(), order.ID, Principal{UserID: stranger.ID, Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 7, stockOf(t, f.db, f.carrot.ID))

	_, err = f.sm.Cancel(context.Background(), 9999, f.owner())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.sm.Cancel(context.Background(), order.ID, Principal{Role: models.RoleAdmin})
	assert.NoError(t, err)
}

func TestCancelAfterConfirmationRejected(t *testing.T) {
	f := newStateFixture(t)
	order := f.place(t)

	_, err := f.sm.Transition(context.Background(), order.ID, models.StatusConfirmed)
	require.NoError(t, err)

	_, err = f.sm.Cancel(context.Background(), order.ID, f.owner())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 7, stockOf(t, f.db, f.carrot.ID))
}

func TestCancelSkipsDeletedFood(t *testing.T) {
	f := newStateFixture(t)
	order := f.place(t)
	require.NoError(t, f.db.Delete(&models.FoodItem{}, f.kale.ID).Error)

	_, err := f.sm.Cancel(context.Background(), order.ID, f.owner())
	require.NoError(t, err)
	assert.Equal(t, 10, stockOf(t, f.db, f.carrot.ID))
}

func TestTransitionLifecycle(t *testing.T) {
	f := newStateFixture(t)
	order := f.place(t)

	for _, next := range []models.OrderStatus{
		models.StatusConfirmed,
		models.StatusPreparing,
		models.StatusOutForDelivery,
		models.StatusDelivered,
	} {
		updated, err := f.sm.Transition(context.Background(), order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
		assert.Len(t, updated.Items, 2)
	}

	// delivered is terminal
	_, err := f.sm.Transition(context.Background(), order.ID, models.StatusPreparing)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.EqualError(t, err, "Cannot change status from delivered to preparing")
	// stock stays sold
	assert.Equal(t, 7, stockOf(t, f.db, f.carrot.ID))
}

func TestTransitionAllowsSkippingAndGoingBack(t *testing.T) {
	f := newStateFixture(t)
	order := f.place(t)

	_, err := f.sm.Transition(context.Background(), order.ID, models.StatusOutForDelivery)
	require.NoError(t, err)
	updated, err := f.sm.Transition(context.Background(), order.ID, models.StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, updated.Status)

	// same status is a no-op success
	_, err = f.sm.Transition(context.Background(), order.ID, models.StatusPreparing)
	assert.NoError(t, err)
}

func TestTransitionToCancelledReleasesStock(t *testing.T) {
	f := newStateFixture(t)
	order := f.place(t)

	updated, err := f.sm.Transition(context.Background(), order.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	assert.Equal(t, 10, stockOf(t, f.db, f.carrot.ID))

	_, err = f.sm.Transition(context.Background(), order.ID, models.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionErrors(t *testing.T) {
	f := newStateFixture(t)
	order := f.place(t)

	_, err := f.sm.Transition(context.Background(), order.ID, models.OrderStatus("shipped"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.EqualError(t, err, "Invalid status")

	_, err = f.sm.Transition(context.Background(), 9999, models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrNotFound)
}
