package order

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmlane/storefront/internal/commerce/cart"
	"github.com/farmlane/storefront/internal/kv"
)

var testRecipient = Recipient{
	Name:    "June Meadows",
	Address: "14 Orchard Lane, Greenfield",
	Phone:   "+31 6 1234 5678",
}

func testLines(price string, qty int) []cart.Line {
	return []cart.Line{{
		ProductID:  "p1",
		Name:       "Free-Range Eggs",
		UnitPrice:  decimal.RequireFromString(price),
		Quantity:   qty,
		Unit:       "dozen",
		SellerID:   "s1",
		SellerName: "Birchwood Farm",
	}}
}

func newTestEngine(t *testing.T) (*Engine, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	e, err := NewEngine(context.Background(), mem, Config{
		ShippingFee:      decimal.RequireFromString("4.90"),
		FreeShippingOver: decimal.RequireFromString("50"),
	})
	require.NoError(t, err)

	seq := 0
	e.newID = func() string {
		seq++
		return fmt.Sprintf("order-%d", seq)
	}
	e.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e, mem
}

// advanceTo walks a fresh order to the wanted status through the regular
// operations.
func advanceTo(t *testing.T, e *Engine, status Status) Order {
	t.Helper()
	ctx := context.Background()

	o, err := e.Checkout(ctx, testLines("5.00", 2), testRecipient)
	require.NoError(t, err)

	steps := []struct {
		at   Status
		next func() (Order, error)
	}{
		{StatusAwaitingPayment, func() (Order, error) { return e.Pay(ctx, o.ID) }},
		{StatusProcessing, func() (Order, error) { return e.MarkShipped(ctx, o.ID, "TRK-1") }},
		{StatusShipped, func() (Order, error) { return e.MarkDelivered(ctx, o.ID) }},
		{StatusAwaitingReceipt, func() (Order, error) { return e.ConfirmReceipt(ctx, o.ID) }},
	}
	for _, step := range steps {
		if o.Status == status {
			return o
		}
		require.Equal(t, step.at, o.Status)
		var err error
		o, err = step.next()
		require.NoError(t, err)
	}
	require.Equal(t, status, o.Status)
	return o
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Checkout(context.Background(), nil, testRecipient)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, e.List())
}

func TestCheckout_BuildsAwaitingPaymentOrder(t *testing.T) {
	e, _ := newTestEngine(t)

	o, err := e.Checkout(context.Background(), testLines("5.00", 2), testRecipient)
	require.NoError(t, err)

	assert.Equal(t, StatusAwaitingPayment, o.Status)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Subtotal))
	assert.True(t, decimal.RequireFromString("4.90").Equal(o.ShippingFee))
	assert.Equal(t, testRecipient, o.Recipient)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, 2, o.Lines[0].Quantity)
}

func TestCheckout_FreeShippingAtThreshold(t *testing.T) {
	e, _ := newTestEngine(t)

	o, err := e.Checkout(context.Background(), testLines("25.00", 2), testRecipient)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("50.00").Equal(o.Subtotal))
	assert.True(t, o.ShippingFee.IsZero())
}

func TestCheckout_LinesAreSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)

	lines := testLines("5.00", 2)
	o, err := e.Checkout(context.Background(), lines, testRecipient)
	require.NoError(t, err)

	lines[0].Quantity = 99

	got, err := e.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Lines[0].Quantity)
}

func TestCheckout_CancelledContextCreatesNothing(t *testing.T) {
	e, _ := newTestEngine(t)
	e.cfg.SettlementDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Checkout(ctx, testLines("5.00", 1), testRecipient)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.List())
}

func TestPay_MovesToProcessing(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o, err := e.Checkout(ctx, testLines("5.00", 1), testRecipient)
	require.NoError(t, err)

	paid, err := e.Pay(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, paid.Status)
}

func TestPay_TwiceRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o := advanceTo(t, e, StatusProcessing)

	_, err := e.Pay(ctx, o.ID)
	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, StatusProcessing, tErr.From)
}

func TestCancel_OnlyBeforePayment(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o, err := e.Checkout(ctx, testLines("5.00", 1), testRecipient)
	require.NoError(t, err)

	cancelled, err := e.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestCancel_AfterPaymentLeavesOrderUnchanged(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o := advanceTo(t, e, StatusProcessing)

	_, err := e.Cancel(ctx, o.ID)
	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)

	got, err := e.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
}

func TestMarkShipped_RequiresTrackingRef(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o := advanceTo(t, e, StatusProcessing)

	_, err := e.MarkShipped(ctx, o.ID, "  ")
	assert.ErrorIs(t, err, ErrTrackingRefMissing)

	shipped, err := e.MarkShipped(ctx, o.ID, "TRK-42")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, shipped.Status)
	assert.Equal(t, "TRK-42", shipped.TrackingRef)
}

func TestConfirmReceipt_FromShippedSkipsDeliveryScan(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o := advanceTo(t, e, StatusShipped)

	done, err := e.ConfirmReceipt(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
}

func TestConfirmReceipt_FromAwaitingReceipt(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o := advanceTo(t, e, StatusAwaitingReceipt)

	done, err := e.ConfirmReceipt(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
}

func TestConfirmReceipt_BeforeShipmentRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o, err := e.Checkout(ctx, testLines("5.00", 1), testRecipient)
	require.NoError(t, err)

	_, err = e.ConfirmReceipt(ctx, o.ID)
	var tErr *InvalidTransitionError
	assert.ErrorAs(t, err, &tErr)
}

func TestSubmitReview_OncePerOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o := advanceTo(t, e, StatusCompleted)

	reviewed, err := e.SubmitReview(ctx, o.ID, 5, "beautiful eggs")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, reviewed.Status)
	assert.Equal(t, 5, reviewed.Rating)

	_, err = e.SubmitReview(ctx, o.ID, 4, "changed my mind")
	var tErr *InvalidTransitionError
	assert.ErrorAs(t, err, &tErr)
}

func TestSubmitReview_RatingBounds(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o := advanceTo(t, e, StatusCompleted)

	_, err := e.SubmitReview(ctx, o.ID, 0, "")
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = e.SubmitReview(ctx, o.ID, 6, "")
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestRequestReturn_RequiresReason(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o := advanceTo(t, e, StatusCompleted)

	_, err := e.RequestReturn(ctx, o.ID, "")
	assert.ErrorIs(t, err, ErrReasonMissing)

	returned, err := e.RequestReturn(ctx, o.ID, "box arrived crushed")
	require.NoError(t, err)
	assert.Equal(t, StatusReturnRequested, returned.Status)
	assert.Equal(t, "box arrived crushed", returned.Reason)
}

func TestRequestReturn_RatedOrderIsClosed(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o := advanceTo(t, e, StatusCompleted)
	_, err := e.SubmitReview(ctx, o.ID, 4, "good")
	require.NoError(t, err)

	_, err = e.RequestReturn(ctx, o.ID, "box arrived crushed")
	var tErr *InvalidTransitionError
	assert.ErrorAs(t, err, &tErr)
}

func TestSubmitReview_ReturnedOrderRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o := advanceTo(t, e, StatusCompleted)
	_, err := e.RequestReturn(ctx, o.ID, "wrong item")
	require.NoError(t, err)

	_, err = e.SubmitReview(ctx, o.ID, 3, "")
	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, StatusReturnRequested, tErr.From)
}

func TestTransitions_UnknownOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	ops := map[string]func() error{
		"pay":             func() error { _, err := e.Pay(ctx, "ghost"); return err },
		"cancel":          func() error { _, err := e.Cancel(ctx, "ghost"); return err },
		"ship":            func() error { _, err := e.MarkShipped(ctx, "ghost", "TRK-1"); return err },
		"mark delivered":  func() error { _, err := e.MarkDelivered(ctx, "ghost"); return err },
		"confirm receipt": func() error { _, err := e.ConfirmReceipt(ctx, "ghost"); return err },
		"review":          func() error { _, err := e.SubmitReview(ctx, "ghost", 5, ""); return err },
		"request return":  func() error { _, err := e.RequestReturn(ctx, "ghost", "reason"); return err },
	}
	for name, op := range ops {
		assert.ErrorIs(t, op(), ErrOrderNotFound, name)
	}
	_, err := e.Get("ghost")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Checkout(ctx, testLines("5.00", 1), testRecipient)
	require.NoError(t, err)
	second, err := e.Checkout(ctx, testLines("3.00", 1), testRecipient)
	require.NoError(t, err)

	list := e.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestListByStatus_FiltersHistory(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	o1, err := e.Checkout(ctx, testLines("5.00", 1), testRecipient)
	require.NoError(t, err)
	o2, err := e.Checkout(ctx, testLines("3.00", 1), testRecipient)
	require.NoError(t, err)
	_, err = e.Pay(ctx, o2.ID)
	require.NoError(t, err)

	awaiting := e.ListByStatus(StatusAwaitingPayment)
	require.Len(t, awaiting, 1)
	assert.Equal(t, o1.ID, awaiting[0].ID)

	assert.Empty(t, e.ListByStatus(StatusShipped))
}

func TestReload_RestoresHistory(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()

	o := advanceTo(t, e, StatusShipped)

	reloaded, err := NewEngine(ctx, mem, e.cfg)
	require.NoError(t, err)

	got, err := reloaded.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, got.Status)
	assert.Equal(t, "TRK-1", got.TrackingRef)
	assert.True(t, o.Subtotal.Equal(got.Subtotal))
}

type failingStore struct {
	kv.Store
}

func (f *failingStore) Set(context.Context, string, []byte) error {
	return assert.AnError
}

func TestTransition_PersistFailureLeavesOrderUnchanged(t *testing.T) {
	e, mem := newTestEngine(t)
	ctx := context.Background()

	o, err := e.Checkout(ctx, testLines("5.00", 1), testRecipient)
	require.NoError(t, err)

	e.store = &failingStore{Store: mem}
	_, err = e.Pay(ctx, o.ID)
	require.Error(t, err)

	got, err := e.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingPayment, got.Status)
}
