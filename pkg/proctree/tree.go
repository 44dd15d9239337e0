// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

// Package proctree maintains a live model of the operating system's process
// ancestry for a security monitoring agent. Fork, exec and exit events are
// fed in by an external event source, possibly out of order and possibly
// more than once; readers concurrently resolve pids, walk ancestry chains
// and attach typed annotations. Nodes whose backing process has exited stay
// resolvable while any consumer is still processing an event that refers to
// them, either through the timestamp aging window or through explicit
// retention.
package proctree

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/edgesec/proctree/pkg/defaults"
	"github.com/edgesec/proctree/pkg/logger"
)

// pendingRemoval schedules the deletion of a map entry once the timestamp
// of the event that caused it has aged out of the seen-timestamp window.
type pendingRemoval struct {
	timestamp uint64
	pid       Pid
}

// ProcessTree is the authoritative pid-to-process mapping. A single mutex
// guards all state; every critical section is a bounded map or slice
// operation. Annotator callbacks and Iterate callbacks always run with the
// mutex released so they may call back into the tree.
type ProcessTree struct {
	annotators []Annotator
	lister     ProcessLister

	mu       sync.Mutex
	procs    map[Pid]*Process
	removeAt []pendingRemoval
	retained map[Pid]uint32
	// seen holds the last defaults.TimestampWindowSize distinct event
	// timestamps. Never read through Get so insertion order is eviction
	// order.
	seen *lru.Cache[uint64, struct{}]
}

// NewProcessTree validates the annotator set and builds the initial tree
// from the processes currently running on the host. Either failing aborts
// construction; no partially initialized tree is returned.
func NewProcessTree(ctx context.Context, lister ProcessLister, annotators []Annotator) (*ProcessTree, error) {
	if lister == nil {
		return nil, errors.New("proctree: process lister must not be nil")
	}
	if err := validateAnnotators(annotators); err != nil {
		return nil, fmt.Errorf("validating annotators: %w", err)
	}
	seen, err := lru.New[uint64, struct{}](defaults.TimestampWindowSize)
	if err != nil {
		return nil, err
	}
	t := &ProcessTree{
		annotators: annotators,
		lister:     lister,
		procs:      make(map[Pid]*Process),
		retained:   make(map[Pid]uint32),
		seen:       seen,
	}
	if err := t.Backfill(ctx); err != nil {
		return nil, fmt.Errorf("initial backfill: %w", err)
	}
	return t, nil
}

// stepLocked records that an event with the given timestamp is being
// processed and reports whether it is novel. A timestamp still present in
// the window has already been applied, so the caller must drop the event.
// Every novel step also sweeps removals, which is what ages entries out.
func (t *ProcessTree) stepLocked(timestamp uint64) bool {
	if t.seen.Contains(timestamp) {
		duplicateEvents.Inc()
		return false
	}
	t.seen.Add(timestamp, struct{}{})
	t.sweepLocked()
	return true
}

// sweepLocked deletes every pending removal whose timestamp has left the
// window and whose pid is not retained. Entries that are still aging or
// still retained stay queued, in order.
func (t *ProcessTree) sweepLocked() {
	kept := t.removeAt[:0]
	for _, r := range t.removeAt {
		if t.seen.Contains(r.timestamp) || t.retained[r.pid] > 0 {
			kept = append(kept, r)
			continue
		}
		if _, ok := t.procs[r.pid]; ok {
			delete(t.procs, r.pid)
			trackedProcesses.Dec()
		}
		removalsCompleted.Inc()
	}
	t.removeAt = kept
}

// HandleFork records that parent spawned a child identical to it except for
// the pid. The child links to the tracked node for the parent's identity; if
// the parent is not tracked (it raced with backfill or already aged out)
// there is nothing to attach to and the event is dropped.
func (t *ProcessTree) HandleFork(timestamp uint64, parent *Process, newPid Pid) {
	t.mu.Lock()
	if !t.stepLocked(timestamp) {
		t.mu.Unlock()
		return
	}
	parentNode, ok := t.procs[parent.Pid]
	if !ok {
		lookupMisses.WithLabelValues("fork").Inc()
		t.mu.Unlock()
		logger.GetLogger().WithField("pid", parent.Pid.Pid).Debug("fork: parent not tracked")
		return
	}
	child := newProcess(newPid, parentNode.Program, parentNode.Cred, parentNode)
	t.procs[newPid] = child
	trackedProcesses.Inc()
	t.mu.Unlock()

	// Annotators may call back into the tree.
	for _, a := range t.annotators {
		a.AnnotateFork(t, parentNode, child)
	}
}

// HandleExec records that p changed its program and credentials in place.
// The successor node keeps p's parent reference: an exec is the same lineage
// running a new program, not a new child. The old pid key is scheduled for
// deferred removal so in-flight consumers can still resolve it, and the
// successor starts with no annotations.
//
// The pid number cannot change across exec; newPid carries a new version of
// the same number. Passing a different number is a caller bug and panics.
func (t *ProcessTree) HandleExec(timestamp uint64, p *Process, newPid Pid, prog *Program, cred Cred) {
	if p.Pid.Pid != newPid.Pid {
		panic(fmt.Sprintf("proctree: exec changed pid number %d -> %d", p.Pid.Pid, newPid.Pid))
	}
	t.mu.Lock()
	if !t.stepLocked(timestamp) {
		t.mu.Unlock()
		return
	}
	oldNode, ok := t.procs[p.Pid]
	if !ok {
		lookupMisses.WithLabelValues("exec").Inc()
		t.mu.Unlock()
		logger.GetLogger().WithField("pid", p.Pid.Pid).Debug("exec: process not tracked")
		return
	}
	successor := newProcess(newPid, prog, cred, oldNode.parent)
	t.removeAt = append(t.removeAt, pendingRemoval{timestamp: timestamp, pid: p.Pid})
	removalsScheduled.Inc()
	t.procs[newPid] = successor
	trackedProcesses.Inc()
	t.mu.Unlock()

	for _, a := range t.annotators {
		a.AnnotateExec(t, oldNode, successor)
	}
}

// HandleExit schedules p's pid for removal. The entry stays resolvable
// until the exit timestamp ages out of the window and no retention is
// outstanding.
func (t *ProcessTree) HandleExit(timestamp uint64, p *Process) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stepLocked(timestamp) {
		return
	}
	t.removeAt = append(t.removeAt, pendingRemoval{timestamp: timestamp, pid: p.Pid})
	removalsScheduled.Inc()
}

// RetainProcess marks the given pids as needing to stay resolvable past
// their natural removal point, typically because an event referring to them
// is still being processed asynchronously. Retaining a pid that is not
// tracked is legal; there is nothing to protect and a later Get may miss.
func (t *ProcessTree) RetainProcess(pids []Pid) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, pid := range pids {
		t.retained[pid]++
		retainedPids.Inc()
	}
}

// ReleaseProcess drops one retention per given pid. When a count reaches
// zero, any aged-out pending removal for that pid is completed immediately.
func (t *ProcessTree) ReleaseProcess(pids []Pid) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, pid := range pids {
		n, ok := t.retained[pid]
		if !ok {
			logger.GetLogger().WithField("pid", pid.Pid).Warn("release without matching retain")
			continue
		}
		if n <= 1 {
			delete(t.retained, pid)
		} else {
			t.retained[pid] = n - 1
		}
		retainedPids.Dec()
	}
	t.sweepLocked()
}

// Get returns the tracked process for the given pid.
func (t *ProcessTree) Get(pid Pid) (*Process, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.procs[pid]
	if !ok {
		lookupMisses.WithLabelValues("get").Inc()
	}
	return p, ok
}

// GetParent returns p's parent, or nil if p is a root.
func (t *ProcessTree) GetParent(p *Process) *Process {
	t.mu.Lock()
	defer t.mu.Unlock()
	return p.parent
}

// RootSlice returns the chain from p up to and including its root. The walk
// happens under the lock so concurrent mutation cannot tear the chain; the
// returned slice is detached and safe to use after the lock is released.
// There may be more than one root in a tree: on Linux both init and kthreadd
// report ppid 0.
func (t *ProcessTree) RootSlice(p *Process) []*Process {
	t.mu.Lock()
	defer t.mu.Unlock()
	var chain []*Process
	for n := p; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	return chain
}

// Iterate calls f once for every tracked process. The set of processes is
// captured before the first call, so f may safely mutate the tree.
func (t *ProcessTree) Iterate(f func(*Process)) {
	t.mu.Lock()
	snapshot := make([]*Process, 0, len(t.procs))
	for _, p := range t.procs {
		snapshot = append(snapshot, p)
	}
	t.mu.Unlock()
	for _, p := range snapshot {
		f(p)
	}
}
