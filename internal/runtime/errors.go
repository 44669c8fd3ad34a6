package runtime

import (
	"errors"
	"fmt"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// ErrMaxStepsExceeded is returned when a run executes more stages than allowed.
var ErrMaxStepsExceeded = errors.New("maximum stage executions exceeded")

// UnroutedSignalError reports a run that ended without a response because a
// stage emitted a signal its routing row does not know.
type UnroutedSignalError struct {
	Stage  domain.Stage
	Signal domain.Step
}

func (e *UnroutedSignalError) Error() string {
	return fmt.Sprintf("stage %q emitted unrecognized signal %q; run ended without a response", e.Stage, e.Signal)
}
