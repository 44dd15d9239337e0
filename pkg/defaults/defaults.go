// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package defaults

const (
	// TimestampWindowSize is the number of distinct event timestamps the
	// tree remembers. The window serves double duty: re-delivered events
	// whose timestamp is still inside it are dropped as duplicates, and a
	// scheduled removal only becomes eligible once its timestamp has been
	// pushed out by newer ones, meaning every consumer has synced past the
	// event that scheduled it.
	TimestampWindowSize = 32
)
