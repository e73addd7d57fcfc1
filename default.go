package shutdown

import (
	"context"
	"os"
	"sync"

	"github.com/meshapi/harness-shutdown/internal/config"
)

var (
	defaultCoordinator *Coordinator
	defaultErr         error
	defaultOnce        sync.Once
)

// LoadDefault builds the process-wide coordinator from HARNESS_SHUTDOWN_* configuration on first use and returns
// it. When the configuration is invalid the coordinator still gets built with the built-in defaults and the
// configuration error is returned alongside it. This method is thread-safe.
func LoadDefault() (*Coordinator, error) {
	defaultOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			defaultErr = err
			defaultCoordinator = New()
			return
		}

		defaultCoordinator = New(
			WithTimeout(cfg.Timeout),
			WithLogger(NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.JSON())),
		)
	})

	return defaultCoordinator, defaultErr
}

// Default returns the process-wide coordinator. This method is thread-safe.
func Default() *Coordinator {
	c, _ := LoadDefault()
	return c
}

// Install registers the default coordinator's listeners. Only the first call has any effect.
func Install(ctx context.Context) {
	Default().Install(ctx)
}

// Trigger runs the default coordinator's cleanup-and-exit sequence for the event.
func Trigger(event Event) {
	Default().Trigger(event)
}

// Recover turns a panic into an uncaught fault shutdown of the default coordinator. Use it as defer Recover().
func Recover() {
	if r := recover(); r != nil {
		Default().fault(r)
	}
}

// Go runs fn in a goroutine guarded by the default coordinator.
func Go(fn func() error) {
	Default().Go(fn)
}

// HandleExit reports an ordinary process exit to the default coordinator.
func HandleExit(code int) {
	Default().HandleExit(code)
}

// AddSteps adds parallel teardown steps to the default coordinator.
func AddSteps(handlers ...NamedHandler) {
	Default().AddSteps(handlers...)
}

// AddSequence adds sequential teardown steps to the default coordinator.
func AddSequence(handlers ...NamedHandler) {
	Default().AddSequence(handlers...)
}

// AddParallelSequence adds a parallel teardown group that waits for all previous groups of the default coordinator.
func AddParallelSequence(handlers ...NamedHandler) {
	Default().AddParallelSequence(handlers...)
}
