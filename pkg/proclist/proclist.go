// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

// Package proclist provides the process lister the tree backfills from,
// built on gopsutil so enumeration works on every platform the agent runs
// on.
package proclist

import (
	"context"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/edgesec/proctree/pkg/proctree"
)

// Lister enumerates live processes on the local host.
type Lister struct{}

var _ proctree.ProcessLister = (*Lister)(nil)

func New() *Lister {
	return &Lister{}
}

func (l *Lister) ListPids(ctx context.Context) ([]int32, error) {
	return process.PidsWithContext(ctx)
}

// LoadPID snapshots a single live process. The create time doubles as the
// pid version discriminator: a reused pid number gets a different create
// time, so it never collides with the node it replaced.
func (l *Lister) LoadPID(ctx context.Context, pid int32) (proctree.Snapshot, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return proctree.Snapshot{}, err
	}
	createTime, err := proc.CreateTimeWithContext(ctx)
	if err != nil {
		return proctree.Snapshot{}, err
	}
	ppid, err := proc.PpidWithContext(ctx)
	if err != nil {
		return proctree.Snapshot{}, err
	}

	// Best effort from here on; kernel threads have no exe or cmdline and
	// credentials may be unreadable across users.
	binary, _ := proc.ExeWithContext(ctx)
	args, _ := proc.CmdlineSliceWithContext(ctx)

	var cred proctree.Cred
	if uids, err := proc.UidsWithContext(ctx); err == nil && len(uids) >= 2 {
		cred.UID = uint32(uids[0])
		cred.EUID = uint32(uids[1])
	}
	if gids, err := proc.GidsWithContext(ctx); err == nil && len(gids) >= 2 {
		cred.GID = uint32(gids[0])
		cred.EGID = uint32(gids[1])
	}

	return proctree.Snapshot{
		Pid:     proctree.Pid{Pid: pid, Version: uint64(createTime)},
		PPid:    ppid,
		Program: &proctree.Program{Binary: binary, Arguments: args},
		Cred:    cred,
	}, nil
}
