// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package proctree

// Pid identifies a single lineage node. The numeric pid alone is not enough:
// the kernel reuses pid numbers, and an exec changes what a pid refers to
// without changing the number. Version is an opaque discriminator that event
// sources derive from the kernel start/exec time and backfill derives from
// the process create time, so two Pid values are the same node only if both
// fields match.
type Pid struct {
	Pid     int32
	Version uint64
}

// Program is the identity of the executable a process is running. It is
// shared between nodes (a fork child runs its parent's program) and replaced
// wholesale on exec.
type Program struct {
	Binary    string
	Arguments []string
}

// Cred is a snapshot of the credentials a process runs with, replaced
// wholesale on exec.
type Cred struct {
	UID  uint32
	GID  uint32
	EUID uint32
	EGID uint32
}
