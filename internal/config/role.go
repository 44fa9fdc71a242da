package config

// Role identifies the single runtime mode a process instance plays.
type Role string

const (
	// RoleAPI serves HTTP traffic, including the health endpoint.
	RoleAPI Role = "api"

	// RoleWorker pulls tasks from the configured queue and executes them.
	RoleWorker Role = "worker"

	// RoleScheduler periodically enqueues due recurring tasks. It must run
	// as a singleton across the fleet; duplicate schedulers double-enqueue.
	RoleScheduler Role = "scheduler"

	// RoleMonitor is a read-only observer over queue and task state.
	RoleMonitor Role = "monitor"
)

// Role selects the runtime role from the configured flags. First match wins:
// scheduler before monitor before worker, with the API server as the default
// when no flag is set. The ordering matters because a single container must
// never run two roles at once.
func (c WorkerConfig) Role() Role {
	switch {
	case c.Beat:
		return RoleScheduler
	case c.Flower:
		return RoleMonitor
	case c.Worker:
		return RoleWorker
	default:
		return RoleAPI
	}
}
