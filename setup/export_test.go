package setup

import shutdown "github.com/meshapi/harness-shutdown"

// SetCoordinatorLoader replaces the coordinator source for the duration of a test.
func SetCoordinatorLoader(load func() (*shutdown.Coordinator, error)) (restore func()) {
	previous := loadCoordinator
	loadCoordinator = load

	return func() { loadCoordinator = previous }
}
