package octofs

import (
	"fmt"

	"github.com/trusslab/octopos-filesystem/blockdev"
)

// FileSystem is the complete in-memory state of one mounted partition: the
// resident directory page, the file registry, and the handle table. It is
// not safe for concurrent use; the boot environment it serves is
// single-threaded and cooperative.
type FileSystem struct {
	dev         blockdev.Device
	totalBlocks uint32
	dir         *directoryPage
	reg         registry
	handles     handleTable
}

// Init brings up the file system on `dev`, a partition of
// `partitionNumBlocks` blocks. If blocks [0, DirBlocks) carry the directory
// signature, the known files are recovered from them; otherwise a fresh
// directory page is written. Initializing the same device again after
// [FileSystem.Close] is supported and yields the same file set.
func Init(dev blockdev.Device, partitionNumBlocks uint32) (*FileSystem, error) {
	if MaxHandles%8 != 0 {
		return nil, fmt.Errorf("handle count %d is not divisible by 8", MaxHandles)
	}
	if partitionNumBlocks <= DirBlocks {
		return nil, fmt.Errorf(
			"partition of %d blocks has no room past the %d directory blocks",
			partitionNumBlocks, DirBlocks)
	}

	fs := &FileSystem{
		dev:         dev,
		totalBlocks: partitionNumBlocks,
		dir:         newDirectoryPage(dev),
		handles:     newHandleTable(),
	}

	if err := fs.dir.load(); err != nil {
		return nil, err
	}

	if fs.dir.hasSignature() {
		fs.reg.entries = fs.dir.recover()
	} else if err := fs.dir.format(); err != nil {
		return nil, err
	}

	return fs, nil
}

// Close flushes the directory page. Every mutation already flushes, so this
// is idempotent; it exists so a clean shutdown has a single final barrier.
// The in-memory state stays valid, matching the expectation that the caller
// may Init the partition again without restarting.
func (fs *FileSystem) Close() error {
	return fs.dir.flush()
}

// TotalBlocks returns the partition size the file system was initialized
// with.
func (fs *FileSystem) TotalBlocks() uint32 {
	return fs.totalBlocks
}

// Files returns the known files in creation order. The slice is a copy but
// the entries are live; treat them as read-only.
func (fs *FileSystem) Files() []*FileEntry {
	files := make([]*FileEntry, len(fs.reg.entries))
	copy(files, fs.reg.entries)
	return files
}
