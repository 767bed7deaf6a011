package octofs

import (
	"github.com/trusslab/octopos-filesystem/blockdev"
	"github.com/trusslab/octopos-filesystem/blockio"
)

// Open returns a handle to the named file, or 0 on any failure: unknown
// mode, oversized or empty name, file already open, missing file without
// ModeOpenOrCreate, a full directory page, or an exhausted handle table.
// At most one handle per file can be live at a time.
func (fs *FileSystem) Open(name string, mode OpenMode) Handle {
	if mode != ModeOpen && mode != ModeOpenOrCreate {
		return 0
	}
	if len(name) == 0 || len(name) >= MaxFilenameSize {
		return 0
	}

	entry := fs.reg.lookup(name)
	if entry != nil && entry.opened {
		return 0
	}

	if entry == nil {
		if mode != ModeOpenOrCreate {
			return 0
		}
		entry = &FileEntry{name: name}
		if fs.dir.addFile(entry) != nil {
			return 0
		}
		fs.reg.add(entry)
	}

	fd, err := fs.handles.acquire(entry)
	if err != nil {
		return 0
	}
	entry.opened = true
	return fd
}

// Write stores data into the open file at the given byte offset and
// returns the number of bytes written, which may be short or zero. Writing
// at offset == size extends the file; writing past it is rejected. When
// the file can't grow far enough (no contiguous room, partition full, or a
// failed zero-fill of new blocks) the write is silently clipped to whatever
// the current size allows. A directory flush that fails after the size was
// raised does not clip the write.
func (fs *FileSystem) Write(fd Handle, data []byte, offset uint32) int {
	entry := fs.handles.get(fd)
	if entry == nil || !entry.opened {
		return 0
	}

	size := uint32(len(data))
	if uint64(offset)+uint64(size) > uint64(entry.size) {
		if offset > entry.size {
			return 0
		}
		// Growth is best-effort: a failed expansion just means the write
		// sees the old size and comes up short.
		_ = fs.expandFileSize(entry, offset+size)
	}

	if offset >= entry.size {
		return 0
	}
	if uint64(offset)+uint64(size) > uint64(entry.size) {
		size = entry.size - offset
	}

	return fs.transfer(entry, data[:size], offset, false)
}

// Read fills `out` with bytes of the open file starting at the given byte
// offset and returns the number of bytes read. The count is clipped to the
// file size; a read at or past the end returns 0 and leaves `out` alone.
func (fs *FileSystem) Read(fd Handle, out []byte, offset uint32) int {
	entry := fs.handles.get(fd)
	if entry == nil || !entry.opened {
		return 0
	}

	if offset >= entry.size {
		return 0
	}
	size := uint32(len(out))
	if uint64(offset)+uint64(size) > uint64(entry.size) {
		size = entry.size - offset
	}

	return fs.transfer(entry, out[:size], offset, true)
}

// transfer walks the file's extent block by block, moving at most the
// bytes remaining in the current block per step. The first short transfer
// from the partial-block layer ends the walk.
func (fs *FileSystem) transfer(entry *FileEntry, buf []byte, offset uint32, read bool) int {
	block := entry.startBlock + blockdev.BlockIndex(offset/BlockSize)
	blockOff := offset % BlockSize

	total := 0
	for total < len(buf) {
		chunk := int(BlockSize - blockOff)
		if remaining := len(buf) - total; chunk > remaining {
			chunk = remaining
		}

		var n int
		if read {
			n = blockio.ReadAt(fs.dev, buf[total:total+chunk], block, blockOff)
		} else {
			n = blockio.WriteAt(fs.dev, buf[total:total+chunk], block, blockOff)
		}
		total += n
		if n != chunk {
			break
		}

		block++
		blockOff = 0
	}
	return total
}

// CloseFile releases the handle and marks the file closed. It returns nil
// on success and [ErrInvalidHandle] for handles that aren't live.
func (fs *FileSystem) CloseFile(fd Handle) error {
	entry := fs.handles.get(fd)
	if entry == nil {
		return ErrInvalidHandle
	}

	entry.opened = false
	fs.handles.release(fd)
	return nil
}
