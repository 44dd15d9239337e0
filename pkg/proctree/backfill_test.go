// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package proctree

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfillEnumerationFailureAbortsConstruction(t *testing.T) {
	lister := standardLister()
	lister.listErr = errors.New("proc unavailable")

	_, err := NewProcessTree(context.Background(), lister, nil)
	assert.ErrorContains(t, err, "proc unavailable")
}

func TestBackfillSkipsUnloadablePids(t *testing.T) {
	lister := standardLister()
	// The shell exits between enumeration and load; its child must still
	// be inserted, as a root.
	lister.loadErr[50] = errors.New("process gone")

	tree := newTestTree(t, lister)

	_, ok := tree.Get(testPid(50))
	assert.False(t, ok)

	worker := mustGet(t, tree, testPid(77))
	assert.Nil(t, tree.GetParent(worker))
	assert.Equal(t, []int32{77}, pidsOf(tree.RootSlice(worker)))

	root := mustGet(t, tree, testPid(1))
	assert.Nil(t, tree.GetParent(root))
}

func TestBackfillOrphanBecomesRoot(t *testing.T) {
	lister := newFakeLister(
		testSnap(1, 0, "/sbin/init"),
		// The parent 199 was never discovered.
		testSnap(200, 199, "/usr/bin/orphan"),
	)
	tree := newTestTree(t, lister)

	orphan := mustGet(t, tree, testPid(200))
	assert.Nil(t, tree.GetParent(orphan))
}

func TestBackfillMultipleRoots(t *testing.T) {
	lister := newFakeLister(
		testSnap(1, 0, "/sbin/init"),
		testSnap(2, 0, "[kthreadd]"),
		testSnap(300, 2, "[kworker]"),
	)
	tree := newTestTree(t, lister)

	kworker := mustGet(t, tree, testPid(300))
	assert.Equal(t, []int32{300, 2}, pidsOf(tree.RootSlice(kworker)))

	init := mustGet(t, tree, testPid(1))
	assert.Equal(t, []int32{1}, pidsOf(tree.RootSlice(init)))
}

func TestBackfillSelfParentedProcess(t *testing.T) {
	// pid 0 reports ppid 0 on some platforms; it must become a root
	// instead of recursing forever.
	lister := newFakeLister(
		testSnap(0, 0, "kernel"),
		testSnap(1, 0, "/sbin/init"),
	)
	tree := newTestTree(t, lister)

	kernel := mustGet(t, tree, testPid(0))
	assert.Nil(t, tree.GetParent(kernel))
	init := mustGet(t, tree, testPid(1))
	parent := tree.GetParent(init)
	require.NotNil(t, parent)
	assert.Equal(t, testPid(0), parent.Pid)
}

func TestBackfillDeepChain(t *testing.T) {
	snaps := []Snapshot{testSnap(1, 0, "/sbin/init")}
	for pid := int32(2); pid <= 100; pid++ {
		snaps = append(snaps, testSnap(pid, pid-1, "/bin/sh"))
	}
	tree := newTestTree(t, newFakeLister(snaps...))

	leaf := mustGet(t, tree, testPid(100))
	chain := tree.RootSlice(leaf)
	require.Len(t, chain, 100)
	assert.Equal(t, int32(1), chain[len(chain)-1].Pid.Pid)
}
