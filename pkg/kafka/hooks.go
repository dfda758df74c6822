package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook runs around every handler call of a topic. An error from
// BeforeHandle skips the handler; AfterHandle always sees the final error.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message) (context.Context, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, err error)
}

// HookedHandler is a MessageHandler that brings its own hooks. They run after the
// consumer-wide hooks.
type HookedHandler interface {
	MessageHandler
	Hooks() []ConsumerHook
}

// RejectError marks a message that no retry can fix. Rejected messages skip the
// retry loop, go to the DLQ when one is configured, and are always committed.
type RejectError struct {
	Code string
	Err  error
}

func (e *RejectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *RejectError) Unwrap() error { return e.Err }

// Reject wraps err as a RejectError with code.
func Reject(code string, err error) error {
	return &RejectError{Code: code, Err: err}
}

// rejectCode returns the code of a RejectError in err's chain.
func rejectCode(err error) (string, bool) {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}

// HookFuncs adapts plain functions to ConsumerHook. Nil functions are no-ops.
type HookFuncs struct {
	Before func(ctx context.Context, topic string, km kafka.Message) (context.Context, error)
	After  func(ctx context.Context, topic string, km kafka.Message, err error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, topic string, km kafka.Message) (context.Context, error) {
	if h.Before == nil {
		return ctx, nil
	}
	return h.Before(ctx, topic, km)
}

func (h HookFuncs) AfterHandle(ctx context.Context, topic string, km kafka.Message, err error) {
	if h.After != nil {
		h.After(ctx, topic, km, err)
	}
}

// HookChain runs BeforeHandle in order and AfterHandle in reverse. A panicking
// hook is turned into a rejection on the way in and ignored on the way out.
type HookChain []ConsumerHook

// NewHookChain drops nil hooks.
func NewHookChain(hooks ...ConsumerHook) HookChain {
	out := make(HookChain, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func (c HookChain) BeforeHandle(ctx context.Context, topic string, km kafka.Message) (context.Context, error) {
	for _, h := range c {
		next, err := safeBefore(h, ctx, topic, km)
		if err != nil {
			return ctx, err
		}
		ctx = next
	}
	return ctx, nil
}

func (c HookChain) AfterHandle(ctx context.Context, topic string, km kafka.Message, err error) {
	for i := len(c) - 1; i >= 0; i-- {
		safeAfter(c[i], ctx, topic, km, err)
	}
}

func safeBefore(h ConsumerHook, ctx context.Context, topic string, km kafka.Message) (next context.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = ctx, Reject("ERR_HOOK_PANIC", fmt.Errorf("hook panic: %v", r))
		}
	}()
	next, err = h.BeforeHandle(ctx, topic, km)
	if next == nil {
		next = ctx
	}
	return next, err
}

func safeAfter(h ConsumerHook, ctx context.Context, topic string, km kafka.Message, err error) {
	defer func() { _ = recover() }()
	h.AfterHandle(ctx, topic, km, err)
}
