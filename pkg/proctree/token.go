// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package proctree

import "sync"

// ProcessToken keeps a set of pids resolvable in the tree for its lifetime.
// Consumers that process an event asynchronously take a token over the pids
// the event references, so a Get during processing succeeds even if the
// processes exit in the meantime.
//
// Construction retains the pids and Close releases them exactly once; extra
// Close calls are no-ops. Clone retains again, giving the copy a lifetime
// independent of the original. To transfer ownership instead, hand over the
// token itself; the counts are untouched.
type ProcessToken struct {
	tree *ProcessTree
	pids []Pid
	once sync.Once
}

// NewProcessToken retains the given pids in tree until the token is closed.
func NewProcessToken(tree *ProcessTree, pids []Pid) *ProcessToken {
	tree.RetainProcess(pids)
	return &ProcessToken{tree: tree, pids: pids}
}

// Close releases the token's pids. Only the first call has an effect.
func (t *ProcessToken) Close() {
	t.once.Do(func() {
		t.tree.ReleaseProcess(t.pids)
	})
}

// Clone returns a new token over the same pids with its own lifetime.
func (t *ProcessToken) Clone() *ProcessToken {
	return NewProcessToken(t.tree, t.pids)
}
