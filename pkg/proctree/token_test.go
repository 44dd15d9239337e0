// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package proctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessTokenLifetime(t *testing.T) {
	tree := newTestTree(t, standardLister())
	worker := mustGet(t, tree, testPid(77))

	token := NewProcessToken(tree, []Pid{worker.Pid})
	tree.HandleExit(1, worker)
	advance(tree, 2, 40)

	// The token holds the node past its aging point.
	_, ok := tree.Get(worker.Pid)
	require.True(t, ok)

	token.Close()
	_, ok = tree.Get(worker.Pid)
	assert.False(t, ok)
}

func TestProcessTokenCloseIdempotent(t *testing.T) {
	tree := newTestTree(t, standardLister())
	worker := mustGet(t, tree, testPid(77))

	token := NewProcessToken(tree, []Pid{worker.Pid})
	token.Close()
	token.Close()

	tree.mu.Lock()
	defer tree.mu.Unlock()
	assert.Empty(t, tree.retained)
}

func TestProcessTokenClone(t *testing.T) {
	tree := newTestTree(t, standardLister())
	worker := mustGet(t, tree, testPid(77))

	token := NewProcessToken(tree, []Pid{worker.Pid})
	clone := token.Clone()

	tree.HandleExit(1, worker)
	advance(tree, 2, 40)

	// The clone's lifetime is independent of the original's.
	token.Close()
	_, ok := tree.Get(worker.Pid)
	require.True(t, ok)

	clone.Close()
	_, ok = tree.Get(worker.Pid)
	assert.False(t, ok)
}

func TestProcessTokenMultiplePids(t *testing.T) {
	tree := newTestTree(t, standardLister())
	shell := mustGet(t, tree, testPid(50))
	worker := mustGet(t, tree, testPid(77))

	token := NewProcessToken(tree, []Pid{shell.Pid, worker.Pid})
	tree.HandleExit(1, worker)
	tree.HandleExit(2, shell)
	advance(tree, 3, 40)

	_, ok := tree.Get(shell.Pid)
	require.True(t, ok)
	_, ok = tree.Get(worker.Pid)
	require.True(t, ok)

	token.Close()
	_, ok = tree.Get(shell.Pid)
	assert.False(t, ok)
	_, ok = tree.Get(worker.Pid)
	assert.False(t, ok)
}
