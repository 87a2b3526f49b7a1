// Package job provides the host's FIFO job queue: the single place
// reaction callbacks, thenable-resolution steps, and module-evaluation
// continuations are scheduled once control returns to the event loop.
//
// The original implementation (gongke-cn/ratjs) keeps a promise's two
// reaction lists (fulfill/reject) as RJS_PromiseReaction entries
// (rjs_promise.h) but the job-queue/scheduler itself was not part of
// this retrieval; Kind below names the ECMAScript-spec job families
// (PromiseReactionJob, PromiseResolveThenableJob) plus the two this
// engine adds of its own (module evaluation, host callback) rather than
// translating an absent source file.
package job

// Kind identifies what scheduled a Job, for diagnostics; Drain runs
// jobs of every kind in one FIFO order.
type Kind uint8

const (
	PromiseReaction Kind = iota
	PromiseResolveThenable
	ModuleEvaluation
	HostCallback
)

func (k Kind) String() string {
	switch k {
	case PromiseReaction:
		return "promise-reaction"
	case PromiseResolveThenable:
		return "promise-resolve-thenable"
	case ModuleEvaluation:
		return "module-evaluation"
	case HostCallback:
		return "host-callback"
	default:
		return "unknown"
	}
}

// Job is one queued continuation: Run is invoked with no arguments once
// its turn comes up, in the order it was enqueued relative to other
// jobs of any kind (ECMAScript's job queue is a single FIFO, not one
// queue per kind).
type Job struct {
	Kind Kind
	Run  func()
}

// Queue is a plain FIFO of Jobs. It is not safe for concurrent use;
// esrt runs its event loop on a single goroutine, the same way the
// engine it's descended from does.
type Queue struct {
	pending []Job
}

// Enqueue appends a job to the back of the queue.
func (q *Queue) Enqueue(kind Kind, run func()) {
	q.pending = append(q.pending, Job{Kind: kind, Run: run})
}

// Len reports how many jobs are currently queued.
func (q *Queue) Len() int { return len(q.pending) }

// Drain runs every queued job to completion, including ones newly
// enqueued by a job that ran earlier in the same drain (a settled
// promise's reaction may itself resolve another promise with waiting
// reactions, or a module-evaluation continuation may enqueue the next
// module in a cycle).
func (q *Queue) Drain() {
	for len(q.pending) > 0 {
		next := q.pending[0]
		q.pending = q.pending[1:]
		next.Run()
	}
}
