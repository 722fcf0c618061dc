// Package checkout turns a user's pending order into a payment. The saga
// settles the order, reserves its stock and records the payment; the
// Reconciler repairs checkouts a crash left in between.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"toadvault/internal/apperr"
	"toadvault/internal/broker"
	"toadvault/internal/logger"
	"toadvault/internal/messages"
	"toadvault/internal/models"
	"toadvault/internal/payments"
	"toadvault/internal/saga"
)

const finishTimeout = 10 * time.Second

type Receipt struct {
	CheckoutID string
	Payment    *models.Payment
	Change     decimal.Decimal
}

type Coordinator struct {
	transport    broker.Transport
	orchestrator *saga.Orchestrator
	log          *logger.Logger
	newID        func() string
}

func NewCoordinator(t broker.Transport, orchestrator *saga.Orchestrator, log *logger.Logger) *Coordinator {
	return &Coordinator{
		transport:    t,
		orchestrator: orchestrator,
		log:          log.With("component", "CheckoutCoordinator"),
		newID:        uuid.NewString,
	}
}

type sagaInput struct {
	UserID     string          `json:"user_id"`
	CheckoutID string          `json:"checkout_id"`
	Total      decimal.Decimal `json:"total"`
	Cash       decimal.Decimal `json:"cash"`
}

func reservationLines(order *models.Order) []models.ReservationLine {
	lines := make([]models.ReservationLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, models.ReservationLine{Barcode: item.Barcode, Quantity: item.Quantity})
	}
	return lines
}

// Checkout pays the user's order with data.Cash. Cash is checked before any
// write, so a rejected tender leaves the order and stock untouched.
func (c *Coordinator) Checkout(ctx context.Context, userID string, data messages.PaymentData) (*Receipt, error) {
	res, err := broker.Call[messages.OrderReply](ctx, c.transport, messages.PatternGetOrder, messages.UserRequest{UserID: userID})
	if err != nil {
		return nil, err
	}
	order := res.Data.Order
	if order == nil {
		return nil, apperr.Infrastructure(errors.New("get_order replied without an order"))
	}
	if order.Status == models.OrderSettling {
		return nil, apperr.Conflict("order_settling", "Order is being checked out")
	}
	cash, err := payments.ValidateCash(data, *order)
	if err != nil {
		return nil, err
	}

	checkoutID := c.newID()
	scope := models.UserScope(userID)
	lines := reservationLines(order)
	log := c.log.With("user_id", userID, "checkout_id", checkoutID)

	var (
		settled *models.Order
		payment *models.Payment
	)

	settle := saga.FuncStep{
		StepName: "settle_order",
		Do: func(ctx context.Context) error {
			res, err := broker.Call[messages.OrderReply](ctx, c.transport, messages.PatternSettleOrder, messages.SettleOrderRequest{
				UserID:     userID,
				CheckoutID: checkoutID,
				Version:    order.Version,
			})
			if err != nil {
				return err
			}
			settled = res.Data.Order
			if settled == nil {
				settled = order
			}
			return nil
		},
		Undo: func(ctx context.Context) error {
			_, err := broker.Call[struct{}](ctx, c.transport, messages.PatternRestoreOrder, messages.CheckoutOrderRequest{UserID: userID, CheckoutID: checkoutID})
			return err
		},
	}

	reserve := saga.FuncStep{
		StepName: "reserve_stock",
		Do: func(ctx context.Context) error {
			_, err := broker.Call[struct{}](ctx, c.transport, messages.PatternReserveStock, messages.StockRequest{
				CheckoutID: checkoutID,
				Scope:      scope,
				Lines:      lines,
			})
			if err == nil || apperr.KindOf(err) != apperr.KindInfrastructure {
				return err
			}
			// Part of the stock may be taken even though no reply arrived.
			if releaseErr := c.releaseStock(ctx, checkoutID); releaseErr != nil {
				log.Error("stock release after failed reserve failed", "error", releaseErr)
				return saga.Suspend(err)
			}
			return err
		},
		Undo: func(ctx context.Context) error {
			_, err := broker.Call[struct{}](ctx, c.transport, messages.PatternReleaseStock, messages.StockRequest{CheckoutID: checkoutID})
			return err
		},
	}

	pay := saga.FuncStep{
		StepName: "payment",
		Do: func(ctx context.Context) error {
			res, err := broker.Call[messages.PaymentReply](ctx, c.transport, messages.PatternPayment, messages.PaymentRequest{
				UserID:      userID,
				CheckoutID:  checkoutID,
				PaymentData: data,
				Order:       *settled,
			})
			if err == nil {
				payment = res.Data.Payment
				return nil
			}
			if apperr.KindOf(err) != apperr.KindInfrastructure {
				return err
			}
			// The payment may have been written before the failure.
			found, lookupErr := c.findPayment(ctx, checkoutID)
			switch {
			case lookupErr == nil:
				payment = found
				return nil
			case apperr.KindOf(lookupErr) == apperr.KindNotFound:
				return err
			default:
				return saga.Suspend(err)
			}
		},
	}

	input := sagaInput{UserID: userID, CheckoutID: checkoutID, Total: order.Total, Cash: cash}
	if err := c.orchestrator.Run(ctx, checkoutID, input, settle, reserve, pay); err != nil {
		var suspended *saga.SuspendedError
		if errors.As(err, &suspended) {
			log.Error("checkout outcome unknown, left for reconciler", "error", suspended.Err)
			return nil, apperr.From(suspended.Err)
		}
		return nil, err
	}

	c.finish(ctx, log, userID, checkoutID)

	receipt := &Receipt{CheckoutID: checkoutID, Payment: payment}
	if payment != nil {
		receipt.Change = payment.Change
	} else {
		receipt.Change = cash.Sub(order.Total)
	}
	return receipt, nil
}

func (c *Coordinator) findPayment(ctx context.Context, checkoutID string) (*models.Payment, error) {
	res, err := broker.Call[messages.PaymentReply](ctx, c.transport, messages.PatternGetPaymentByCheckout, messages.CheckoutRequest{CheckoutID: checkoutID})
	if err != nil {
		return nil, err
	}
	if res.Data.Payment == nil {
		return nil, apperr.NotFound("payment_not_found", "Payment not found")
	}
	return res.Data.Payment, nil
}

// releaseStock returns whatever checkoutID reserved. It outlives the caller's
// context so a timed out request still gives the stock back.
func (c *Coordinator) releaseStock(ctx context.Context, checkoutID string) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	_, err := broker.Call[struct{}](rctx, c.transport, messages.PatternReleaseStock, messages.StockRequest{CheckoutID: checkoutID})
	return err
}

// finish clears the order and makes the reservation final. The payment is
// already recorded, so failures are logged and left to the reconciler.
func (c *Coordinator) finish(ctx context.Context, log *logger.Logger, userID, checkoutID string) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if err := finalize(fctx, c.transport, userID, checkoutID); err != nil {
		log.Warn("checkout completion deferred to reconciler", "error", err)
	}
}

// finalize commits the stock then deletes the settled order.
func finalize(ctx context.Context, t broker.Transport, userID, checkoutID string) error {
	if _, err := broker.Call[struct{}](ctx, t, messages.PatternCommitStock, messages.StockRequest{CheckoutID: checkoutID}); err != nil {
		return fmt.Errorf("commit stock: %w", err)
	}
	if _, err := broker.Call[struct{}](ctx, t, messages.PatternCompleteOrder, messages.CheckoutOrderRequest{UserID: userID, CheckoutID: checkoutID}); err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	return nil
}

// rollback releases the stock then returns the order to pending.
func rollback(ctx context.Context, t broker.Transport, userID, checkoutID string) error {
	if _, err := broker.Call[struct{}](ctx, t, messages.PatternReleaseStock, messages.StockRequest{CheckoutID: checkoutID}); err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if _, err := broker.Call[struct{}](ctx, t, messages.PatternRestoreOrder, messages.CheckoutOrderRequest{UserID: userID, CheckoutID: checkoutID}); err != nil {
		return fmt.Errorf("restore order: %w", err)
	}
	return nil
}
