package octofs

import (
	bitmap "github.com/boljen/go-bitmap"
)

// handleTable maps live handles to their open file entries. Allocation uses
// a one-bit-per-handle bitmap; bit 0 is permanently set so handle 0, the
// universal failure value, is never issued.
type handleTable struct {
	bits  bitmap.Bitmap
	files [MaxHandles]*FileEntry
}

func newHandleTable() handleTable {
	table := handleTable{bits: bitmap.New(MaxHandles)}
	table.bits.Set(0, true)
	return table
}

// acquire finds the lowest free handle, marks it used, and installs the
// entry. Fails with [ErrHandlesExhausted] when the table is full.
func (table *handleTable) acquire(entry *FileEntry) (Handle, error) {
	for i := 1; i < MaxHandles; i++ {
		if !table.bits.Get(i) {
			table.bits.Set(i, true)
			table.files[i] = entry
			return Handle(i), nil
		}
	}
	return 0, ErrHandlesExhausted
}

// release frees the handle and drops the entry reference. Releasing an
// invalid or already-free handle is a no-op.
func (table *handleTable) release(fd Handle) {
	if fd == 0 || fd >= MaxHandles {
		return
	}
	table.bits.Set(int(fd), false)
	table.files[fd] = nil
}

// get returns the entry a handle refers to, or nil for handles outside
// [1, MaxHandles) and handles with no open file.
func (table *handleTable) get(fd Handle) *FileEntry {
	if fd == 0 || fd >= MaxHandles {
		return nil
	}
	return table.files[fd]
}
