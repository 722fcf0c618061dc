package users

import (
	"context"

	"toadvault/internal/broker"
	"toadvault/internal/messages"
)

func RegisterHandlers(r *broker.Router, s *Service) {
	broker.Register(r, messages.PatternRegister, func(ctx context.Context, req messages.RegisterRequest) (broker.Result, error) {
		u, err := s.Register(ctx, req.Name, req.Email, req.Password)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.Created("User registered successfully", messages.UserReply{User: u}), nil
	})

	broker.Register(r, messages.PatternLogin, func(ctx context.Context, req messages.LoginRequest) (broker.Result, error) {
		u, token, err := s.Login(ctx, req.Email, req.Password)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Login successful", messages.UserReply{User: u, Token: token}), nil
	})
}
