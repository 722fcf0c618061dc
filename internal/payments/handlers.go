package payments

import (
	"context"

	"toadvault/internal/broker"
	"toadvault/internal/messages"
)

func RegisterHandlers(r *broker.Router, s *Service) {
	broker.Register(r, messages.PatternPayment, func(ctx context.Context, req messages.PaymentRequest) (broker.Result, error) {
		p, err := s.HandlePayment(ctx, req.UserID, req.CheckoutID, req.PaymentData, req.Order)
		if err != nil {
			return broker.Result{}, err
		}
		change := p.Change
		return broker.OK("Payment success", messages.PaymentReply{Payment: p, Change: &change}), nil
	})

	broker.Register(r, messages.PatternGetPaymentByCheckout, func(ctx context.Context, req messages.CheckoutRequest) (broker.Result, error) {
		p, err := s.FindByCheckout(ctx, req.CheckoutID)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Payment found", messages.PaymentReply{Payment: p}), nil
	})

	broker.Register(r, messages.PatternListPayments, func(ctx context.Context, req messages.UserRequest) (broker.Result, error) {
		list, err := s.ListByUser(ctx, req.UserID)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Payments retrieved successfully", messages.PaymentsReply{Payments: list}), nil
	})
}
