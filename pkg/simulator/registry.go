package simulator

import "context"

// Registry is implemented by every protocol simulator.
type Registry interface {
	// Setup registers a test record and returns its test id.
	Setup(ctx context.Context, req *Request) (string, error)
	// Verify returns the call count of the first record registered as testID.
	Verify(testID string) (int, bool)
	// Clear removes all records and returns how many were removed.
	Clear() int
	// Remove deletes every record registered as testID.
	Remove(testID string) int
}

// Executor is implemented by the simulators that answer HTTP requests.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}
