package octofs

import (
	"github.com/trusslab/octopos-filesystem/blockdev"
)

// FileEntry is the in-memory record for one known file. Entries are created
// either during recovery from the directory page or when a file is first
// created, and live until the file system is torn down; there is no delete.
type FileEntry struct {
	name string

	// startBlock is where the payload begins, or 0 for a file that has
	// never been written to.
	startBlock blockdev.BlockIndex
	// numBlocks is the number of contiguous blocks currently owned by the
	// file.
	numBlocks uint32
	// size is the logical byte length. Once blocks are allocated,
	// size <= numBlocks*BlockSize always holds.
	size uint32

	// dirOffset is the byte position of this entry's record inside the
	// directory page. Records never move, so it is stamped once at creation
	// and reused for every in-place rewrite.
	dirOffset uint32

	// opened guards the one-handle-per-file rule.
	opened bool
}

// Name returns the filename.
func (entry *FileEntry) Name() string {
	return entry.name
}

// Size returns the logical byte length of the file.
func (entry *FileEntry) Size() uint32 {
	return entry.size
}

// StartBlock returns the first payload block, or 0 for an empty file.
func (entry *FileEntry) StartBlock() blockdev.BlockIndex {
	return entry.startBlock
}

// NumBlocks returns the number of blocks allocated to the file.
func (entry *FileEntry) NumBlocks() uint32 {
	return entry.numBlocks
}

// IsOpen reports whether a handle to this file is currently live.
func (entry *FileEntry) IsOpen() bool {
	return entry.opened
}

// recordSize gives the serialized length of this entry's directory record:
// a u16 name length, the name bytes plus NUL, and three u32 fields.
func (entry *FileEntry) recordSize() uint32 {
	return uint32(len(entry.name)) + 15
}
