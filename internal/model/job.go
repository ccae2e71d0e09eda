package model

// ExecutionStatus is the outcome of a single disloc run
type ExecutionStatus string

const (
	StatusSuccess ExecutionStatus = "success"
	StatusFailed  ExecutionStatus = "failed"
)

// TimeoutDetail is the error detail reported when a run exceeds its deadline
const TimeoutDetail = "timeout"

// Job identifies one disloc invocation and the files it owns
type Job struct {
	ID           string `json:"id" bson:"id"`
	WorkspaceDir string `json:"workspace_dir" bson:"workspace_dir"`
	InputPath    string `json:"input_path" bson:"input_path"`
	OutputPath   string `json:"output_path" bson:"output_path"`
}

// ExecutionResult is produced exactly once per run by the bounded runner
type ExecutionResult struct {
	Status      ExecutionStatus `json:"status" bson:"status"`
	ErrorDetail string          `json:"error" bson:"error"`
}

// Succeeded reports whether the run exited cleanly
func (r ExecutionResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// TimedOut reports whether the run was killed at its deadline
func (r ExecutionResult) TimedOut() bool {
	return r.Status == StatusFailed && r.ErrorDetail == TimeoutDetail
}

// Err maps a failed result onto the error taxonomy, nil on success
func (r ExecutionResult) Err() error {
	switch {
	case r.Succeeded():
		return nil
	case r.TimedOut():
		return ErrExecutionTimeout
	default:
		return ErrExecutionFailure
	}
}
