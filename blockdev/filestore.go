package blockdev

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"
)

// FileStore is the reference backing: every block lives in its own file
// named block<N>.txt under a single directory. It exists so the partition
// can be poked at with ordinary shell tools; anything performance-sensitive
// should sit on a [StreamDevice] instead.
//
// A block file is only materialized the first time its block is read or
// written. Reading a block with no backing file first writes a zero-filled
// one, which is what realizes the read-as-zeroes contract for unwritten
// blocks.
type FileStore struct {
	dir         string
	totalBlocks uint32
}

// NewFileStore opens (creating if necessary) a per-block file store rooted
// at `dir`.
func NewFileStore(dir string, totalBlocks uint32) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create block store directory: %w", err)
	}
	return &FileStore{dir: dir, totalBlocks: totalBlocks}, nil
}

// TotalBlocks returns the device geometry.
func (store *FileStore) TotalBlocks() uint32 {
	return store.totalBlocks
}

func (store *FileStore) blockPath(block BlockIndex) string {
	return filepath.Join(store.dir, fmt.Sprintf("block%d.txt", block))
}

// writeBlockFile replaces one block file. renameio gives us an atomic
// replace, so a crash mid-write can't leave a torn block behind.
func (store *FileStore) writeBlockFile(block BlockIndex, data []byte) error {
	return renameio.WriteFile(store.blockPath(block), data, 0o644)
}

// ReadBlocks implements [Device].
func (store *FileStore) ReadBlocks(buf []byte, start BlockIndex, count uint32) int {
	if len(buf) < int(count)*BlockSize ||
		uint64(start)+uint64(count) > uint64(store.totalBlocks) {
		return 0
	}

	totalRead := 0
	for i := uint32(0); i < count; i++ {
		block := start + BlockIndex(i)
		target := buf[int(i)*BlockSize : int(i+1)*BlockSize]

		contents, err := os.ReadFile(store.blockPath(block))
		if os.IsNotExist(err) {
			// Never written: materialize a zero block, then hand it back.
			zero := make([]byte, BlockSize)
			if store.writeBlockFile(block, zero) != nil {
				return totalRead
			}
			contents = zero
		} else if err != nil || len(contents) != BlockSize {
			return totalRead
		}

		copy(target, contents)
		totalRead += BlockSize
	}
	return totalRead
}

// WriteBlocks implements [Device].
func (store *FileStore) WriteBlocks(buf []byte, start BlockIndex, count uint32) int {
	if len(buf) < int(count)*BlockSize ||
		uint64(start)+uint64(count) > uint64(store.totalBlocks) {
		return 0
	}

	totalWritten := 0
	for i := uint32(0); i < count; i++ {
		block := start + BlockIndex(i)
		source := buf[int(i)*BlockSize : int(i+1)*BlockSize]
		if store.writeBlockFile(block, source) != nil {
			return totalWritten
		}
		totalWritten += BlockSize
	}
	return totalWritten
}
