package shutdown

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Pipeline is the cleanup body of a Coordinator: an ordered list of teardown groups, each running its handlers
// either concurrently or one after another. An empty pipeline completes immediately.
type Pipeline struct {
	steps []teardownStep
	lock  sync.Mutex
}

// AddSteps adds parallel teardown steps. These steps will be executed at the same time together or along with
// previously added steps if they are also able to run in parallel. Calling AddSteps(a) and AddSteps(b) is same as
// AddSteps(a, b).
func (p *Pipeline) AddSteps(handlers ...NamedHandler) {
	p.add(handlers, true, false)
}

// AddSequence adds sequential steps meaning that these handlers will be executed one at a time and in the same
// order given. Calling AddSequence(a) and AddSequence(b) is same as AddSequence(a, b).
func (p *Pipeline) AddSequence(handlers ...NamedHandler) {
	p.add(handlers, false, false)
}

// AddParallelSequence starts a new parallel group that only begins once every previous group has finished.
// AddParallelSequence(a) and AddParallelSequence(b) is not the same as AddParallelSequence(a, b). In the former, a
// runs and upon completion, b starts whereas in the latter case a and b both get started at the same time.
func (p *Pipeline) AddParallelSequence(handlers ...NamedHandler) {
	p.add(handlers, true, true)
}

// Len returns the number of registered handlers.
func (p *Pipeline) Len() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	n := 0
	for _, step := range p.steps {
		n += len(step.handlers)
	}

	return n
}

func (p *Pipeline) add(handlers []NamedHandler, parallel, newGroup bool) {
	if len(handlers) == 0 {
		return
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if !newGroup && len(p.steps) > 0 && p.steps[len(p.steps)-1].parallel == parallel {
		last := &p.steps[len(p.steps)-1]
		last.handlers = append(last.handlers, handlers...)
		return
	}

	// own the backing array so appends to this group never write into the caller's slice.
	p.steps = append(p.steps, teardownStep{handlers: append([]NamedHandler(nil), handlers...), parallel: parallel})
}

// Run executes every group in order and returns the failures of all handlers combined. A handler panic counts as
// a failure. When ctx is done the pipeline stops waiting and returns the context error along with the failures
// collected so far; handlers still running are abandoned.
func (p *Pipeline) Run(ctx context.Context, logger Logger) error {
	p.lock.Lock()
	steps := make([]teardownStep, len(p.steps))
	copy(steps, p.steps)
	p.lock.Unlock()

	var result *multierror.Error

	for _, step := range steps {
		results := make(chan handlerResult, len(step.handlers))

		go func() {
			for _, handler := range step.handlers {
				if step.parallel {
					go executeHandler(ctx, handler, results)
				} else {
					executeHandler(ctx, handler, results)
				}
			}
		}()

		for remaining := len(step.handlers); remaining > 0; remaining-- {
			select {
			case r := <-results:
				if r.err != nil {
					result = multierror.Append(result, fmt.Errorf("%s: %w", r.name, r.err))
					logError(logger, "teardown failed", "handler", r.name, "error", r.err)
				} else {
					logInfo(logger, "teardown completed", "handler", r.name)
				}
			case <-ctx.Done():
				return multierror.Append(result, ctx.Err()).ErrorOrNil()
			}
		}
	}

	return result.ErrorOrNil()
}

func executeHandler(ctx context.Context, handler NamedHandler, results chan<- handlerResult) {
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		results <- handlerResult{name: handler.Name(), err: err}
	}()

	err = handler.Teardown(ctx)
}

type teardownStep struct {
	handlers []NamedHandler
	parallel bool
}

type handlerResult struct {
	name string
	err  error
}
