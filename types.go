package shutdown

import (
	"context"
	"fmt"
)

// Handler releases one resource owned by the test framework when the process is about to terminate.
type Handler interface {
	Teardown(ctx context.Context) error
}

// NamedHandler is a Handler with a label used in the shutdown logs.
type NamedHandler interface {
	Handler

	Name() string
}

// TeardownFunc describes the function signatures accepted by HandlerFuncWithName.
type TeardownFunc interface {
	func() | func() error | func(context.Context) | func(context.Context) error
}

// HandlerWithName labels a handler.
func HandlerWithName(name string, handler Handler) NamedHandler {
	return labeledHandler{Handler: handler, name: name}
}

// HandlerFuncWithName turns a plain function into a named teardown handler.
//
// Accepted function signatures:
// func ()
// func () error
// func (context.Context)
// func (context.Context) error
func HandlerFuncWithName[F TeardownFunc](name string, fn F) NamedHandler {
	var handler Handler

	switch f := any(fn).(type) {
	case func():
		handler = teardownFunc(func(context.Context) error {
			f()
			return nil
		})
	case func() error:
		handler = teardownFunc(func(context.Context) error { return f() })
	case func(context.Context):
		handler = teardownFunc(func(ctx context.Context) error {
			f(ctx)
			return nil
		})
	case func(context.Context) error:
		handler = teardownFunc(f)
	default:
		panic(fmt.Sprintf("unexpected function signature for teardown handler: %T", fn))
	}

	return labeledHandler{Handler: handler, name: name}
}

type labeledHandler struct {
	Handler
	name string
}

func (l labeledHandler) Name() string {
	return l.name
}

type teardownFunc func(context.Context) error

func (t teardownFunc) Teardown(ctx context.Context) error {
	return t(ctx)
}
