package core

import "context"

// JobDispatcher defines the contract for a system that can accept and queue
// background jobs for asynchronous processing. This interface decouples the
// event source (the webhook handler) from the job execution mechanism.
type JobDispatcher interface {
	// Dispatch accepts a ReviewEvent and queues it for processing. It
	// returns an error if the job cannot be queued, for example when the
	// queue is full, providing a mechanism for backpressure.
	Dispatch(ctx context.Context, event *ReviewEvent) error

	// Stop shuts the dispatcher down, letting in-flight jobs finish.
	Stop()
}

// Job represents a single, executable unit of work. Each job is triggered by
// a ReviewEvent and performs one full review run.
type Job interface {
	// Run executes the job's logic. It returns the aggregate outcome of the
	// run, or an error on fatal bootstrap failure.
	Run(ctx context.Context, event *ReviewEvent) (*RunResult, error)
}
