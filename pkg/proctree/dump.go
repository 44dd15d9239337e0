// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package proctree

import (
	"fmt"
	"io"
	"sort"
)

// DebugDump writes a human readable listing of the tree to w: one line per
// tracked process, indented by depth, with pid, parent pid and binary.
// Diagnostic only; the format is not a stable contract. The snapshot is
// taken under the lock, the writing happens after it is released.
func (t *ProcessTree) DebugDump(w io.Writer) {
	t.mu.Lock()
	nodes := make([]*Process, 0, len(t.procs))
	tracked := make(map[*Process]struct{}, len(t.procs))
	for _, p := range t.procs {
		nodes = append(nodes, p)
		tracked[p] = struct{}{}
	}
	t.mu.Unlock()

	children := make(map[*Process][]*Process)
	var roots []*Process
	for _, p := range nodes {
		if _, ok := tracked[p.parent]; p.parent != nil && ok {
			children[p.parent] = append(children[p.parent], p)
		} else {
			// True roots, plus nodes whose parent already aged out.
			roots = append(roots, p)
		}
	}
	sortByPid(roots)
	for _, root := range roots {
		dumpSubtree(w, children, root, 0)
	}
}

func dumpSubtree(w io.Writer, children map[*Process][]*Process, p *Process, depth int) {
	var ppid int32
	if p.parent != nil {
		ppid = p.parent.Pid.Pid
	}
	binary := ""
	if p.Program != nil {
		binary = p.Program.Binary
	}
	fmt.Fprintf(w, "%*spid=%d ppid=%d binary=%s\n", depth*2, "", p.Pid.Pid, ppid, binary)
	kids := children[p]
	sortByPid(kids)
	for _, child := range kids {
		dumpSubtree(w, children, child, depth+1)
	}
}

func sortByPid(procs []*Process) {
	sort.Slice(procs, func(i, j int) bool {
		if procs[i].Pid.Pid != procs[j].Pid.Pid {
			return procs[i].Pid.Pid < procs[j].Pid.Pid
		}
		return procs[i].Pid.Version < procs[j].Pid.Version
	})
}
