// Package octofs implements a minimal persistent flat-namespace file system
// over a fixed-size block-addressed partition. It is the storage core shared
// by the OS, the installer, and the bootloader: all three link against this
// package to read and write named byte-stream files.
//
// The first DirBlocks blocks of the partition hold the directory page; the
// rest is file payload, handed out by a strictly append-only contiguous
// allocator. There is no delete, no rename, and no space reclamation.
package octofs

import (
	"github.com/trusslab/octopos-filesystem/blockdev"
)

// BlockSize is the size of one partition block, in bytes.
const BlockSize = blockdev.BlockSize

// DirBlocks is the number of blocks at the start of the partition reserved
// for the directory page.
const DirBlocks = 2

// DirDataSize is the size of the resident directory page, in bytes.
const DirDataSize = DirBlocks * BlockSize

// MaxHandles bounds the handle namespace: valid handles are in
// [1, MaxHandles). Must be divisible by 8 so the allocation bitmap is a
// whole number of bytes.
const MaxHandles = 64

// MaxFilenameSize is the maximum on-disk size of a filename, including the
// trailing NUL.
const MaxFilenameSize = 256

// Handle identifies an open file. Handle 0 is never issued; it is the
// universal failure value returned by [FileSystem.Open].
type Handle uint32

// OpenMode selects the behavior of [FileSystem.Open] for missing files.
type OpenMode uint32

const (
	// ModeOpen opens an existing file and fails if it doesn't exist.
	ModeOpen = OpenMode(0)
	// ModeOpenOrCreate opens an existing file, creating an empty one first
	// if no file with that name is known.
	ModeOpenOrCreate = OpenMode(1)
)
