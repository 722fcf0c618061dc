package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"toadvault/internal/apperr"
	"toadvault/internal/logger"
	"toadvault/internal/validation"
)

// Reply is the envelope every handler answers with.
type Reply struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code,omitempty"`
	Kind    apperr.Kind     `json:"kind,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Result is a successful handler outcome.
type Result struct {
	Status  int
	Message string
	Data    any
}

func OK(message string, data any) Result {
	return Result{Status: http.StatusOK, Message: message, Data: data}
}

func Created(message string, data any) Result {
	return Result{Status: http.StatusCreated, Message: message, Data: data}
}

// Response is the decoded side of a successful Call.
type Response[T any] struct {
	Status  int
	Message string
	Data    T
}

// Router binds typed handlers to a Transport.
type Router struct {
	transport Transport
	validate  *validator.Validate
	log       *logger.Logger
}

func NewRouter(t Transport, v *validator.Validate, log *logger.Logger) *Router {
	if v == nil {
		v = validation.New()
	}
	return &Router{transport: t, validate: v, log: log}
}

// Register decodes and validates each request into Req before fn runs.
func Register[Req any](r *Router, pattern string, fn func(ctx context.Context, req Req) (Result, error)) {
	log := r.log.With("pattern", pattern)
	r.transport.Handle(pattern, func(ctx context.Context, payload []byte) (reply []byte) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("handler panic recovered", "panic", rec)
				reply = encodeError(apperr.Infrastructure(fmt.Errorf("panic: %v", rec)))
			}
		}()

		var req Req
		if err := json.Unmarshal(payload, &req); err != nil {
			return encodeError(apperr.Validation("invalid_payload", "malformed request payload"))
		}
		if err := r.validate.Struct(req); err != nil {
			return encodeError(apperr.Validation("invalid_payload", validation.Message(err)))
		}

		res, err := fn(ctx, req)
		if err != nil {
			appErr := apperr.From(err)
			if appErr.Kind == apperr.KindInfrastructure {
				log.Error("handler failed", "code", appErr.Code, "error", appErr.Err)
			} else {
				log.Debug("handler rejected request", "code", appErr.Code, "message", appErr.Message)
			}
			return encodeError(appErr)
		}
		return encodeResult(res)
	})
}

func encodeResult(res Result) []byte {
	reply := Reply{Status: res.Status, Success: true, Message: res.Message}
	if reply.Status == 0 {
		reply.Status = http.StatusOK
	}
	if res.Data != nil {
		data, err := json.Marshal(res.Data)
		if err != nil {
			return encodeError(apperr.Infrastructure(err))
		}
		reply.Data = data
	}
	raw, _ := json.Marshal(reply)
	return raw
}

func encodeError(e *apperr.Error) []byte {
	raw, _ := json.Marshal(Reply{
		Status:  e.Status,
		Success: false,
		Message: e.Message,
		Code:    e.Code,
		Kind:    e.Kind,
	})
	return raw
}

// Call sends req to pattern and decodes a successful reply into T. A failed
// reply comes back as the *apperr.Error the handler produced.
func Call[T any](ctx context.Context, t Transport, pattern string, req any) (Response[T], error) {
	var out Response[T]

	payload, err := json.Marshal(req)
	if err != nil {
		return out, apperr.Infrastructure(fmt.Errorf("encode %s request: %w", pattern, err))
	}
	raw, err := t.Request(ctx, pattern, payload)
	if err != nil {
		return out, apperr.From(err)
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return out, apperr.Infrastructure(fmt.Errorf("decode %s reply: %w", pattern, err))
	}
	if !reply.Success {
		kind := reply.Kind
		if kind == "" {
			kind = apperr.KindInfrastructure
		}
		status := reply.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return out, apperr.New(kind, status, reply.Code, reply.Message)
	}

	out.Status = reply.Status
	out.Message = reply.Message
	if len(reply.Data) > 0 && string(reply.Data) != "null" {
		if err := json.Unmarshal(reply.Data, &out.Data); err != nil {
			return out, apperr.Infrastructure(fmt.Errorf("decode %s data: %w", pattern, err))
		}
	}
	return out, nil
}
