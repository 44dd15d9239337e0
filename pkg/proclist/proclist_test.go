// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package proclist

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPidsIncludesSelf(t *testing.T) {
	lister := New()
	pids, err := lister.ListPids(context.Background())
	require.NoError(t, err)

	self := int32(os.Getpid())
	assert.Contains(t, pids, self)
}

func TestLoadPIDSelf(t *testing.T) {
	lister := New()
	self := int32(os.Getpid())

	snap, err := lister.LoadPID(context.Background(), self)
	require.NoError(t, err)

	assert.Equal(t, self, snap.Pid.Pid)
	assert.NotZero(t, snap.Pid.Version)
	assert.Equal(t, int32(os.Getppid()), snap.PPid)
	require.NotNil(t, snap.Program)
	assert.NotEmpty(t, snap.Program.Binary)
	assert.Equal(t, uint32(os.Geteuid()), snap.Cred.EUID)
}

func TestLoadPIDMissing(t *testing.T) {
	lister := New()

	// Pid numbers are bounded well below this on every supported OS.
	_, err := lister.LoadPID(context.Background(), 1<<30)
	assert.Error(t, err)
}
