// Package serial provides asynchronous mutual exclusion for logical resources.
//
// A Queue runs submitted operations one at a time, in submission order. An
// operation that fails or panics only affects its own caller; the queue moves
// on to the next operation.
//
// A Registry maps resource keys to Queues. It creates a Queue the first time
// a key is used and evicts it as soon as the key has no outstanding work, so
// the set of live queues tracks the set of busy keys. Operations on different
// keys run concurrently with no ordering relationship between them.
//
// Submission never blocks. Submit returns a Pending handle whose Wait method
// delivers the result; Do combines the two. Because submission is
// non-blocking, an operation may queue further work on its own key, but it
// must not wait for that work, since it only starts once the current
// operation returns.
//
// Accepted operations always run to completion. The context passed to an
// operation carries the submitter's values but never its cancellation, and
// a caller that stops waiting early does not stop the operation.
package serial
