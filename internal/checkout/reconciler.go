package checkout

import (
	"context"
	"time"

	"toadvault/internal/apperr"
	"toadvault/internal/broker"
	"toadvault/internal/logger"
	"toadvault/internal/messages"
)

// Reconciler resolves orders left settling longer than settleTimeout: paid
// checkouts are completed, unpaid ones rolled back.
type Reconciler struct {
	transport     broker.Transport
	log           *logger.Logger
	settleTimeout time.Duration
	interval      time.Duration
	now           func() time.Time
}

type SweepStats struct {
	Completed  int
	RolledBack int
	Failed     int
}

func NewReconciler(t broker.Transport, log *logger.Logger, settleTimeout, interval time.Duration) *Reconciler {
	return &Reconciler{
		transport:     t,
		log:           log.With("component", "CheckoutReconciler"),
		settleTimeout: settleTimeout,
		interval:      interval,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("reconciler started", "interval", r.interval.String(), "settle_timeout", r.settleTimeout.String())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, err := r.Sweep(ctx)
			if err != nil {
				r.log.Warn("reconcile sweep failed", "error", err)
				continue
			}
			if stats.Completed+stats.RolledBack+stats.Failed > 0 {
				r.log.Info("reconcile sweep done", "completed", stats.Completed, "rolled_back", stats.RolledBack, "failed", stats.Failed)
			}
		}
	}
}

// Sweep makes one pass over the stuck orders.
func (r *Reconciler) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	res, err := broker.Call[messages.OrdersReply](ctx, r.transport, messages.PatternListSettling, messages.ListSettlingRequest{
		OlderThan: r.now().Add(-r.settleTimeout),
	})
	if err != nil {
		return stats, err
	}

	for _, order := range res.Data.Orders {
		log := r.log.With("user_id", order.UserID, "checkout_id", order.CheckoutID)

		_, err := broker.Call[messages.PaymentReply](ctx, r.transport, messages.PatternGetPaymentByCheckout, messages.CheckoutRequest{CheckoutID: order.CheckoutID})
		switch {
		case err == nil:
			if err := finalize(ctx, r.transport, order.UserID, order.CheckoutID); err != nil {
				log.Warn("completing paid checkout failed", "error", err)
				stats.Failed++
				continue
			}
			stats.Completed++
			log.Info("paid checkout completed")
		case apperr.KindOf(err) == apperr.KindNotFound:
			if err := rollback(ctx, r.transport, order.UserID, order.CheckoutID); err != nil {
				log.Warn("rolling back unpaid checkout failed", "error", err)
				stats.Failed++
				continue
			}
			stats.RolledBack++
			log.Info("unpaid checkout rolled back")
		default:
			log.Warn("payment lookup failed", "error", err)
			stats.Failed++
		}
	}
	return stats, nil
}
