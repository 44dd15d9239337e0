// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package proctree

import "reflect"

// Process is a node in the tree. Once a node has been handed to a reader it
// is never mutated: an exec installs a successor node under a new Pid rather
// than editing the old one, and the parent link is fixed at construction.
// The only exception is the annotation map, which grows monotonically under
// the tree mutex.
//
// Nodes are shared by pointer. A reader holding a node keeps its data (and
// its whole parent chain) alive even after the map entry is removed; removal
// only makes the pid unresolvable through the tree.
type Process struct {
	Pid     Pid
	Program *Program
	Cred    Cred

	// parent is nil for roots and never reassigned.
	parent *Process
	// annotations is keyed by the annotation's concrete type and guarded
	// by the owning tree's mutex.
	annotations map[reflect.Type]Annotation
}

func newProcess(pid Pid, prog *Program, cred Cred, parent *Process) *Process {
	return &Process{
		Pid:         pid,
		Program:     prog,
		Cred:        cred,
		parent:      parent,
		annotations: make(map[reflect.Type]Annotation),
	}
}
