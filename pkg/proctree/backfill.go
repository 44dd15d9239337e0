// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package proctree

import (
	"context"
	"fmt"

	"github.com/edgesec/proctree/pkg/logger"
)

// Snapshot is a point-in-time description of a live process as discovered by
// a ProcessLister. PPid is carried separately because parent links are wired
// by the tree during backfill, not by the lister.
type Snapshot struct {
	Pid     Pid
	PPid    int32
	Program *Program
	Cred    Cred
}

// ProcessLister enumerates the processes currently running on the host. It
// is only consulted during Backfill.
type ProcessLister interface {
	// ListPids returns the pids of all live processes.
	ListPids(ctx context.Context) ([]int32, error)
	// LoadPID snapshots a single live process.
	LoadPID(ctx context.Context, pid int32) (Snapshot, error)
}

// Backfill populates the tree from the processes currently running on the
// host. Snapshots are grouped by parent pid before any insertion, so a child
// enumerated before its parent is simply buffered until the parent goes in.
// A process whose parent was not discovered (ppid 0, or the parent exited
// mid-scan) becomes a root. Failure to enumerate aborts; failure to load an
// individual pid does not.
func (t *ProcessTree) Backfill(ctx context.Context) error {
	pids, err := t.lister.ListPids(ctx)
	if err != nil {
		return fmt.Errorf("enumerating processes: %w", err)
	}
	discovered := make(map[int32]struct{}, len(pids))
	byParent := make(map[int32][]Snapshot)
	for _, pid := range pids {
		snap, err := t.lister.LoadPID(ctx, pid)
		if err != nil {
			// Processes exit between enumeration and load.
			logger.GetLogger().WithError(err).WithField("pid", pid).Debug("backfill: skipping pid")
			continue
		}
		discovered[snap.Pid.Pid] = struct{}{}
		byParent[snap.PPid] = append(byParent[snap.PPid], snap)
	}
	for ppid, snaps := range byParent {
		for _, snap := range snaps {
			_, haveParent := discovered[ppid]
			if haveParent && ppid != snap.Pid.Pid {
				continue
			}
			// Parent unknown or self-parented: this is a root.
			t.backfillInsertChildren(byParent, nil, snap)
		}
	}
	return nil
}

// backfillInsertChildren inserts the discovered process under the given
// parent node and recursively attaches every discovered child buffered
// under its pid.
func (t *ProcessTree) backfillInsertChildren(byParent map[int32][]Snapshot, parent *Process, snap Snapshot) {
	node := newProcess(snap.Pid, snap.Program, snap.Cred, parent)
	t.mu.Lock()
	t.procs[snap.Pid] = node
	trackedProcesses.Inc()
	t.mu.Unlock()

	if parent != nil {
		for _, a := range t.annotators {
			a.AnnotateFork(t, parent, node)
		}
	}

	for _, child := range byParent[snap.Pid.Pid] {
		if child.Pid == snap.Pid {
			continue
		}
		t.backfillInsertChildren(byParent, node, child)
	}
}
