package ports

import (
	"context"

	"github.com/aretw0/pubflow/pkg/domain"
)

// CommandRunner executes the external process of a task.
type CommandRunner interface {
	// Run starts the command and waits for it to exit.
	// A non-zero exit is reported in the result, not as an error.
	// An error means the process could not be started or was interrupted.
	Run(ctx context.Context, cmd domain.Command) (domain.CommandResult, error)
}
