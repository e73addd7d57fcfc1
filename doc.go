// Package shutdown makes test harness processes terminate cleanly instead of leaving orphaned processes behind.
//
// A Coordinator listens for termination requests (SIGTERM, SIGINT) and fatal faults (a recovered panic, an error
// returned by a background goroutine) and reacts to the first one by running a bounded cleanup followed by a
// process exit:
//
//	coordinator := shutdown.New(shutdown.WithTimeout(5 * time.Second))
//	coordinator.Install(context.Background())
//
// The cleanup body is a teardown pipeline the test framework fills with its own handlers, for example to close
// browser sessions or stop worker processes. Without handlers the cleanup completes immediately.
//
//	coordinator.AddSteps(
//		shutdown.HandlerFuncWithName("browser", closeBrowser),
//		shutdown.HandlerFuncWithName("worker", stopWorker))
//	coordinator.AddSequence(shutdown.HandlerFuncWithName("tmpdir", removeTempDir))
//
// AddSteps groups handlers that run concurrently, AddSequence handlers that run one after another and
// AddParallelSequence starts a concurrent group that waits for everything registered before it.
//
// Exit status is 0 when the cleanup of a termination request succeeds and 1 otherwise: the cleanup failed, the
// watchdog fired before it finished, the trigger was a fault, or a second trigger arrived while the first cleanup was
// still pending. The cleanup body never runs twice.
//
// Faults are reported through the coordinator:
//
//	defer coordinator.Recover()
//	coordinator.Go(func() error { return uploadFixtures(ctx) })
//
// A process-wide coordinator configured from HARNESS_SHUTDOWN_* environment variables is available through Default()
// and the package-level shortcuts. Test binaries usually activate it from TestMain with the setup package.
package shutdown
