package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toadvault/internal/apperr"
	"toadvault/internal/broker"
	"toadvault/internal/inventory"
	"toadvault/internal/logger"
	"toadvault/internal/messages"
	"toadvault/internal/models"
	"toadvault/internal/orders"
	"toadvault/internal/payments"
	"toadvault/internal/saga"
	"toadvault/internal/saga/sagalog"
)

const userID = "u1"

var scope = models.UserScope(userID)

type harness struct {
	transport *broker.LocalTransport
	router    *broker.Router
	engine    *orders.Engine
	stock     *inventory.Service
	stockDB   *inventory.MemoryStore
	payments  *payments.Service
	journal   *sagalog.MemoryRepository
	coord     *Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.Nop()
	tr := broker.NewLocal(2 * time.Second)
	r := broker.NewRouter(tr, nil, log)

	h := &harness{
		transport: tr,
		router:    r,
		engine:    orders.NewEngine(orders.NewMemoryRepository(), log),
		stockDB:   inventory.NewMemoryStore(),
		payments:  payments.NewService(payments.NewMemoryRepository(), log),
		journal:   sagalog.NewMemoryRepository(),
	}
	h.stock = inventory.NewService(h.stockDB, log)
	orders.RegisterHandlers(r, h.engine)
	inventory.RegisterHandlers(r, h.stock)
	payments.RegisterHandlers(r, h.payments)

	h.coord = NewCoordinator(tr, saga.NewOrchestrator(log, h.journal), log)
	n := 0
	h.coord.newID = func() string {
		n++
		return "co-" + string(rune('0'+n))
	}
	return h
}

// cart stocks barcode 100 at 2.50 and adds qty units of it to the order.
func (h *harness) cart(t *testing.T, stock, qty int) {
	t.Helper()
	ctx := context.Background()
	_, _, err := h.stock.AddItem(ctx, scope, inventory.NewItem{Barcode: "100", Name: "Fly", Price: decimal.RequireFromString("2.50"), Stock: stock})
	require.NoError(t, err)
	for i := 0; i < qty; i++ {
		item, err := h.stock.GetItemForOrder(ctx, scope, "100")
		require.NoError(t, err)
		_, _, err = h.engine.CreateOrAddItem(ctx, userID, orders.Item{Barcode: item.Barcode, Name: item.Name, Price: item.Price, Stock: item.Stock})
		require.NoError(t, err)
	}
}

func (h *harness) stockLeft(t *testing.T) int {
	t.Helper()
	item, err := h.stock.GetItemByBarcode(context.Background(), scope, "100")
	require.NoError(t, err)
	return item.Stock
}

func tender(raw string) messages.PaymentData {
	return messages.PaymentData{Cash: json.RawMessage(raw)}
}

func TestCheckoutPaysAndClearsOrder(t *testing.T) {
	h := newHarness(t)
	h.cart(t, 5, 2)

	receipt, err := h.coord.Checkout(context.Background(), userID, tender(`20`))
	require.NoError(t, err)
	assert.Equal(t, "co-1", receipt.CheckoutID)
	assert.True(t, receipt.Change.Equal(decimal.NewFromInt(15)))
	require.NotNil(t, receipt.Payment)
	assert.True(t, receipt.Payment.Amount.Equal(decimal.NewFromInt(5)))

	_, err = h.engine.GetOrderByUserID(context.Background(), userID)
	assert.True(t, apperr.Is(err, "order_not_found"))
	assert.Equal(t, 3, h.stockLeft(t))

	_, err = h.stockDB.FindReservation(context.Background(), "co-1")
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	history, err := h.journal.History(context.Background(), "co-1")
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, sagalog.StatusCompleted, history[len(history)-1].Status)
}

func TestCheckoutRejectsCashWithoutWrites(t *testing.T) {
	h := newHarness(t)
	h.cart(t, 5, 2)

	for _, raw := range []string{`4`, `"20"`} {
		_, err := h.coord.Checkout(context.Background(), userID, tender(raw))
		require.Error(t, err)
		assert.Equal(t, 400, apperr.From(err).Status)
	}

	order, err := h.engine.GetOrderByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 5, h.stockLeft(t))

	paid, err := h.payments.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, paid)
}

func TestCheckoutWithoutOrder(t *testing.T) {
	h := newHarness(t)
	_, err := h.coord.Checkout(context.Background(), userID, tender(`20`))
	assert.True(t, apperr.Is(err, "order_not_found"))
}

func TestCheckoutStockShortfallRestoresOrder(t *testing.T) {
	h := newHarness(t)
	h.cart(t, 5, 3)

	stock := 1
	_, err := h.stock.UpdateItem(context.Background(), scope, "100", inventory.Patch{Stock: &stock})
	require.NoError(t, err)

	_, err = h.coord.Checkout(context.Background(), userID, tender(`20`))
	assert.True(t, apperr.Is(err, "insufficient_stock"))

	order, err := h.engine.GetOrderByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 1, h.stockLeft(t))
}

func TestCheckoutPaymentFailureCompensates(t *testing.T) {
	h := newHarness(t)
	h.cart(t, 5, 2)

	broker.Register(h.router, messages.PatternPayment, func(ctx context.Context, req messages.PaymentRequest) (broker.Result, error) {
		return broker.Result{}, errors.New("payments db down")
	})

	_, err := h.coord.Checkout(context.Background(), userID, tender(`20`))
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))

	order, err := h.engine.GetOrderByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 5, h.stockLeft(t))
}

func TestCheckoutPaymentWrittenBeforeFailure(t *testing.T) {
	h := newHarness(t)
	h.cart(t, 5, 2)

	broker.Register(h.router, messages.PatternPayment, func(ctx context.Context, req messages.PaymentRequest) (broker.Result, error) {
		if _, err := h.payments.HandlePayment(ctx, req.UserID, req.CheckoutID, req.PaymentData, req.Order); err != nil {
			return broker.Result{}, err
		}
		return broker.Result{}, errors.New("reply lost")
	})

	receipt, err := h.coord.Checkout(context.Background(), userID, tender(`10`))
	require.NoError(t, err)
	assert.True(t, receipt.Change.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 3, h.stockLeft(t))
}

func TestCheckoutUnknownPaymentOutcomeLeavesOrderSettling(t *testing.T) {
	h := newHarness(t)
	h.cart(t, 5, 1)

	broker.Register(h.router, messages.PatternPayment, func(ctx context.Context, req messages.PaymentRequest) (broker.Result, error) {
		return broker.Result{}, errors.New("payments db down")
	})
	broker.Register(h.router, messages.PatternGetPaymentByCheckout, func(ctx context.Context, req messages.CheckoutRequest) (broker.Result, error) {
		return broker.Result{}, errors.New("payments db down")
	})

	_, err := h.coord.Checkout(context.Background(), userID, tender(`10`))
	require.Error(t, err)

	order, err := h.engine.GetOrderByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderSettling, order.Status)
	assert.Equal(t, 4, h.stockLeft(t))
}

// reserveThenLoseReply takes the stock but answers as if the inventory
// service never replied.
func (h *harness) reserveThenLoseReply() {
	broker.Register(h.router, messages.PatternReserveStock, func(ctx context.Context, req messages.StockRequest) (broker.Result, error) {
		if err := h.stock.Reserve(ctx, req.CheckoutID, req.Scope, req.Lines); err != nil {
			return broker.Result{}, err
		}
		return broker.Result{}, errors.New("reply lost")
	})
}

func TestCheckoutReserveReplyLostReleasesStock(t *testing.T) {
	h := newHarness(t)
	h.cart(t, 5, 2)
	h.reserveThenLoseReply()

	_, err := h.coord.Checkout(context.Background(), userID, tender(`20`))
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))

	order, err := h.engine.GetOrderByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 5, h.stockLeft(t))

	_, err = h.stockDB.FindReservation(context.Background(), "co-1")
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	paid, err := h.payments.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, paid)
}

func TestCheckoutReserveReplyLostAndReleaseDownLeftForReconciler(t *testing.T) {
	h := newHarness(t)
	h.cart(t, 5, 2)
	h.reserveThenLoseReply()

	var releases int
	broker.Register(h.router, messages.PatternReleaseStock, func(ctx context.Context, req messages.StockRequest) (broker.Result, error) {
		releases++
		if releases == 1 {
			return broker.Result{}, errors.New("inventory down")
		}
		if err := h.stock.Release(ctx, req.CheckoutID); err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Stock released", nil), nil
	})

	_, err := h.coord.Checkout(context.Background(), userID, tender(`20`))
	require.Error(t, err)

	order, err := h.engine.GetOrderByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderSettling, order.Status)
	assert.Equal(t, 3, h.stockLeft(t))

	stats, err := newTestReconciler(h).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepStats{RolledBack: 1}, stats)

	order, err = h.engine.GetOrderByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 5, h.stockLeft(t))
}

// interrupt leaves a checkout settled and reserved, optionally paid.
func (h *harness) interrupt(t *testing.T, checkoutID string, paid bool) {
	t.Helper()
	ctx := context.Background()
	order, err := h.engine.GetOrderByUserID(ctx, userID)
	require.NoError(t, err)
	settled, err := h.engine.Settle(ctx, userID, checkoutID, order.Version)
	require.NoError(t, err)
	require.NoError(t, h.stock.Reserve(ctx, checkoutID, scope, reservationLines(settled)))
	if paid {
		_, err := h.payments.HandlePayment(ctx, userID, checkoutID, tender(`50`), *settled)
		require.NoError(t, err)
	}
}

func newTestReconciler(h *harness) *Reconciler {
	r := NewReconciler(h.transport, logger.Nop(), time.Minute, time.Hour)
	r.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	return r
}

func TestReconcilerCompletesPaidCheckout(t *testing.T) {
	h := newHarness(t)
	h.cart(t, 5, 2)
	h.interrupt(t, "co-crash", true)

	stats, err := newTestReconciler(h).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepStats{Completed: 1}, stats)

	_, err = h.engine.GetOrderByUserID(context.Background(), userID)
	assert.True(t, apperr.Is(err, "order_not_found"))
	assert.Equal(t, 3, h.stockLeft(t))
	_, err = h.stockDB.FindReservation(context.Background(), "co-crash")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestReconcilerRollsBackUnpaidCheckout(t *testing.T) {
	h := newHarness(t)
	h.cart(t, 5, 2)
	h.interrupt(t, "co-crash", false)
	assert.Equal(t, 3, h.stockLeft(t))

	stats, err := newTestReconciler(h).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepStats{RolledBack: 1}, stats)

	order, err := h.engine.GetOrderByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, 5, h.stockLeft(t))
}

func TestReconcilerIgnoresFreshCheckouts(t *testing.T) {
	h := newHarness(t)
	h.cart(t, 5, 1)
	h.interrupt(t, "co-live", false)

	r := NewReconciler(h.transport, logger.Nop(), time.Hour, time.Hour)
	stats, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepStats{}, stats)

	order, err := h.engine.GetOrderByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderSettling, order.Status)
}
