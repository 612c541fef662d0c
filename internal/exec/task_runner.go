package exec

import "context"

// TaskRunner spawns sub-processes. `Local` is the production implementation.
type TaskRunner interface {
	NewCommand(ctx context.Context, cfg CommandConfig) (Command, error)
	GetExitStatusFromError(error) (int, error)
}
