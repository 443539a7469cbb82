package eval

import (
	"github.com/statpatch/statpatch/debug"
	"github.com/statpatch/statpatch/op"
)

// BatchError pins a failed operation to its position in the batch.
type BatchError struct {
	Index int
	Op    op.Op
	Err   error
}

func (b BatchError) Error() string {
	return b.Err.Error()
}

func (b BatchError) Unwrap() error {
	return b.Err
}

// BatchResult reports a whole batch. Results holds one entry per
// attempted operation; under atomic rollback operations past the first
// failure are never attempted and have no entry.
type BatchResult struct {
	Success  bool
	Results  []Result
	Errors   []BatchError
	Rollback bool
}

// ExecuteBatch runs ops in order. Non-atomic mode applies every
// operation independently and accumulates failures. Atomic mode deep
// copies the document up front and restores that snapshot verbatim on
// the first non-skip failure, abandoning the rest of the batch.
func (e *Executor) ExecuteBatch(ops []op.Op, atomic bool) BatchResult {
	br := BatchResult{Results: make([]Result, 0, len(ops))}

	snap := e.doc
	if atomic {
		snap = e.doc.Clone()
	}
	if debug.Batch() {
		debug.Logf("batch: %d ops, atomic=%v\n", len(ops), atomic)
	}

	for i, o := range ops {
		res := e.Execute(o)
		br.Results = append(br.Results, res)
		if res.Success || res.Skipped {
			continue
		}
		br.Errors = append(br.Errors, BatchError{Index: i, Op: o, Err: res.Err})
		if atomic {
			e.doc.Restore(snap)
			br.Rollback = true
			if debug.Batch() {
				debug.Logf("batch: rollback at op %d: %v\n", i, res.Err)
			}
			return br
		}
	}
	br.Success = len(br.Errors) == 0
	return br
}
