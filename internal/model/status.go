package model

// Invocation status values.
//
//	pending -> running -> completed
//	                   \-> failed
//
// completed and failed are terminal and never change afterwards.
type InvocationStatus string

const (
	StatusPending   InvocationStatus = "pending"
	StatusRunning   InvocationStatus = "running"
	StatusCompleted InvocationStatus = "completed"
	StatusFailed    InvocationStatus = "failed"
)

// IsTerminal reports whether s is completed or failed.
func (s InvocationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s InvocationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}
