// Package saga runs a sequence of steps and compensates the completed ones in
// reverse order when a later step fails.
package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"toadvault/internal/logger"
	"toadvault/internal/saga/sagalog"
)

// Step is one unit of work with the action that undoes it.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// FuncStep adapts a pair of functions to Step. A nil Undo means the step has
// nothing to compensate.
type FuncStep struct {
	StepName string
	Do       func(ctx context.Context) error
	Undo     func(ctx context.Context) error
}

func (s FuncStep) Name() string { return s.StepName }

func (s FuncStep) Execute(ctx context.Context) error { return s.Do(ctx) }

func (s FuncStep) Compensate(ctx context.Context) error {
	if s.Undo == nil {
		return nil
	}
	return s.Undo(ctx)
}

// SuspendedError marks a step whose outcome is unknown. The saga stops
// without compensating so a recovery process can settle it later.
type SuspendedError struct {
	Err error
}

func (e *SuspendedError) Error() string { return "saga suspended: " + e.Err.Error() }

func (e *SuspendedError) Unwrap() error { return e.Err }

func Suspend(err error) error { return &SuspendedError{Err: err} }

// compensationTimeout bounds the whole rollback. It runs detached from the
// caller's context so a caller that timed out still gets rolled back.
const compensationTimeout = 10 * time.Second

type Orchestrator struct {
	log     *logger.Logger
	journal sagalog.Repository
}

func NewOrchestrator(log *logger.Logger, journal sagalog.Repository) *Orchestrator {
	return &Orchestrator{log: log.With("component", "SagaOrchestrator"), journal: journal}
}

// Run executes steps in order under sagaID. On failure it compensates every
// completed step, last first, and returns the step's error.
func (o *Orchestrator) Run(ctx context.Context, sagaID string, payload any, steps ...Step) error {
	raw, _ := json.Marshal(payload)
	o.record(ctx, sagaID, sagalog.StatusStarted, "", string(raw), nil)

	done := make([]Step, 0, len(steps))
	for _, step := range steps {
		o.log.Debug("executing step", "saga_id", sagaID, "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			var suspended *SuspendedError
			if errors.As(err, &suspended) {
				o.log.Error("step outcome unknown, saga suspended", "saga_id", sagaID, "step", step.Name(), "error", suspended.Err)
				o.record(ctx, sagaID, sagalog.StatusFailed, step.Name(), "", []string{err.Error()})
				return err
			}
			o.log.Warn("step failed, compensating", "saga_id", sagaID, "step", step.Name(), "error", err)
			errs := []string{fmt.Sprintf("step %s failed: %v", step.Name(), err)}
			o.record(ctx, sagaID, sagalog.StatusCompensating, step.Name(), "", errs)
			errs = append(errs, o.rollback(ctx, sagaID, done)...)
			o.record(ctx, sagaID, sagalog.StatusFailed, step.Name(), "", errs)
			return err
		}
		done = append(done, step)
		o.record(ctx, sagaID, sagalog.StatusStepDone, step.Name(), "", nil)
	}

	o.record(ctx, sagaID, sagalog.StatusCompleted, "", "", nil)
	o.log.Info("saga completed", "saga_id", sagaID)
	return nil
}

func (o *Orchestrator) rollback(ctx context.Context, sagaID string, steps []Step) []string {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var errs []string
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		o.log.Debug("compensating step", "saga_id", sagaID, "step", step.Name())
		if err := step.Compensate(cctx); err != nil {
			o.log.Error("CRITICAL: compensation failed", "saga_id", sagaID, "step", step.Name(), "error", err)
			errs = append(errs, fmt.Sprintf("compensation of %s failed: %v", step.Name(), err))
		}
	}
	return errs
}

// record appends to the journal. A journal failure is logged, never fatal.
func (o *Orchestrator) record(ctx context.Context, sagaID string, status sagalog.Status, step, payload string, errs []string) {
	if o.journal == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.journal.Save(wctx, sagalog.NewEntry(sagaID, status, step, payload, errs)); err != nil {
		o.log.Warn("saga log write failed", "saga_id", sagaID, "status", status, "error", err)
	}
}
