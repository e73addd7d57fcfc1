package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds how long the cleanup body may run before the process is forced out.
const DefaultTimeout = 5 * time.Second

// Exit status codes.
const (
	ExitClean  = 0
	ExitForced = 1
)

// Coordinator owns the shutdown state of a process. Once installed it listens for termination signals and fatal
// faults and runs a bounded cleanup followed by a process exit. The cleanup body runs at most once per coordinator;
// any trigger that arrives while it is pending forces an immediate exit.
type Coordinator struct {
	pipeline Pipeline

	shuttingDown atomic.Bool
	exitCode     atomic.Int32
	timeout      time.Duration
	logger       Logger
	exit         func(int)
	signals      map[os.Signal]Event

	installOnce sync.Once
	lock        sync.Mutex
	listeners   map[Event]int
	table       EventTable
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the cleanup watchdog duration. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger. If set to nil, no logs will be written.
func WithLogger(logger Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithExitFunc replaces os.Exit. The function is expected not to return; when it does (tests), Trigger returns.
func WithExitFunc(exit func(int)) Option {
	return func(c *Coordinator) {
		c.exit = exit
	}
}

// WithSignals replaces the signal to event mapping used by Install.
func WithSignals(signals map[os.Signal]Event) Option {
	return func(c *Coordinator) {
		c.signals = signals
	}
}

// WithoutSignals makes Install register the event table without subscribing to operating system signals.
func WithoutSignals() Option {
	return WithSignals(nil)
}

// New creates a coordinator that has not yet been installed.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		timeout:   DefaultTimeout,
		logger:    NewLogger(os.Stderr, "info", false),
		exit:      os.Exit,
		signals:   DefaultSignals(),
		listeners: make(map[Event]int),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Timeout returns the cleanup watchdog duration.
func (c *Coordinator) Timeout() time.Duration {
	return c.timeout
}

// Logger returns the logger in use, nil when logging is disabled.
func (c *Coordinator) Logger() Logger {
	return c.logger
}

// ShuttingDown reports whether the shutdown sequence has started. It never goes back to false.
func (c *Coordinator) ShuttingDown() bool {
	return c.shuttingDown.Load()
}

// AddSteps adds parallel teardown steps to the cleanup body. See Pipeline.AddSteps.
func (c *Coordinator) AddSteps(handlers ...NamedHandler) {
	c.pipeline.AddSteps(handlers...)
}

// AddSequence adds sequential teardown steps to the cleanup body. See Pipeline.AddSequence.
func (c *Coordinator) AddSequence(handlers ...NamedHandler) {
	c.pipeline.AddSequence(handlers...)
}

// AddParallelSequence adds a parallel teardown group that waits for every earlier group. See
// Pipeline.AddParallelSequence.
func (c *Coordinator) AddParallelSequence(handlers ...NamedHandler) {
	c.pipeline.AddParallelSequence(handlers...)
}

// Len returns the number of registered teardown handlers.
func (c *Coordinator) Len() int {
	return c.pipeline.Len()
}

// Handlers returns the table of event handlers Install registers.
func (c *Coordinator) Handlers() EventTable {
	return EventTable{
		EventTerminate:          c.Trigger,
		EventInterrupt:          c.Trigger,
		EventUncaughtFault:      c.Trigger,
		EventUnhandledRejection: c.Trigger,
		EventExit:               c.onExit,
	}
}

// Install registers one listener per lifecycle event and starts watching operating system signals until ctx is
// done. Only the first call has any effect.
func (c *Coordinator) Install(ctx context.Context) {
	c.installOnce.Do(func() {
		table := c.Handlers()

		c.lock.Lock()
		c.table = table
		for event := range table {
			c.listeners[event]++
		}
		c.lock.Unlock()

		if len(c.signals) > 0 {
			c.watchSignals(ctx)
		}
	})
}

// Listeners returns how many listeners are registered per event.
func (c *Coordinator) Listeners() map[Event]int {
	c.lock.Lock()
	defer c.lock.Unlock()

	out := make(map[Event]int, len(c.listeners))
	for event, n := range c.listeners {
		out[event] = n
	}

	return out
}

// Dispatch hands the event to its registered handler and reports whether one was installed. Events arriving before
// Install are dropped.
func (c *Coordinator) Dispatch(event Event) bool {
	c.lock.Lock()
	handler, ok := c.table[event]
	c.lock.Unlock()

	if !ok {
		logWarn(c.logger, "no listener installed", "event", event)
		return false
	}

	handler(event)
	return true
}

// Trigger runs the cleanup-and-exit sequence for the given event.
//
// The first call flips the shutting down flag, runs the cleanup body under a watchdog and exits with 0 on success
// (1 for fatal events) or 1 when cleanup fails or the watchdog fires first. Any later call exits with 1 right away
// without waiting for the pending cleanup.
func (c *Coordinator) Trigger(event Event) {
	if !c.shuttingDown.CompareAndSwap(false, true) {
		logWarn(c.logger, "Force exit: shutdown already in progress", "event", event)
		c.exit(ExitForced)
		return
	}

	logInfo(c.logger, fmt.Sprintf("Received %s, cleaning up...", event))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchdog := time.NewTimer(c.timeout)
	done := make(chan error, 1)

	go func() {
		done <- c.cleanup(ctx)
	}()

	select {
	case err := <-done:
		watchdog.Stop()

		if err != nil {
			logError(c.logger, "Cleanup failed", "event", event, "error", err)
			c.exit(ExitForced)
			return
		}

		logInfo(c.logger, "Cleanup complete", "event", event)
		if event.Fatal() {
			c.exit(ExitForced)
			return
		}
		c.exit(ExitClean)
	case <-watchdog.C:
		logWarn(c.logger, "Cleanup timeout exceeded, forcing exit", "event", event, "timeout", c.timeout)
		cancel()
		c.exit(ExitForced)
	}
}

// Recover turns a panic into an uncaught fault shutdown. It must be called directly by a deferred statement. When
// the coordinator is not installed the panic is resumed.
func (c *Coordinator) Recover() {
	if r := recover(); r != nil {
		c.fault(r)
	}
}

func (c *Coordinator) fault(r any) {
	logError(c.logger, "uncaught panic", "panic", r)
	if !c.Dispatch(EventUncaughtFault) {
		panic(r)
	}
}

// Go runs fn in its own goroutine. An error returned by fn starts an unhandled rejection shutdown and a panic starts
// an uncaught fault shutdown.
//
// Unlike Recover, Go does not resurface anything when the coordinator is not installed: a panic is resumed and
// crashes the process, but a returned error is only logged.
func (c *Coordinator) Go(fn func() error) {
	go func() {
		defer c.Recover()

		if err := fn(); err != nil {
			logError(c.logger, "unhandled background error", "error", err)
			c.Dispatch(EventUnhandledRejection)
		}
	}()
}

// HandleExit notifies the coordinator that the process is leaving with the given status code through ordinary
// control flow. It does not terminate the process.
func (c *Coordinator) HandleExit(code int) {
	c.exitCode.Store(int32(code))
	c.Dispatch(EventExit)
}

func (c *Coordinator) onExit(Event) {
	if c.ShuttingDown() {
		return
	}
	logInfo(c.logger, "Process exiting", "code", c.exitCode.Load())
}

func (c *Coordinator) cleanup(ctx context.Context) error {
	if c.pipeline.Len() == 0 {
		return nil
	}

	return c.pipeline.Run(ctx, c.logger)
}

func (c *Coordinator) watchSignals(ctx context.Context) {
	ch := make(chan os.Signal, len(c.signals))
	sigs := make([]os.Signal, 0, len(c.signals))
	for sig := range c.signals {
		sigs = append(sigs, sig)
	}
	signal.Notify(ch, sigs...)

	go func() {
		defer signal.Stop(ch)

		for {
			select {
			case sig := <-ch:
				// each event in its own goroutine so a second signal can force exit while cleanup is pending.
				go c.Dispatch(c.signals[sig])
			case <-ctx.Done():
				return
			}
		}
	}()
}

func logInfo(logger Logger, msg string, args ...any) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

func logWarn(logger Logger, msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

func logError(logger Logger, msg string, args ...any) {
	if logger != nil {
		logger.Error(msg, args...)
	}
}
