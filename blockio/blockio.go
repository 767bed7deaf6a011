// Package blockio converts byte-granular single-block transfers into the
// whole-block operations a [blockdev.Device] understands. Writes that don't
// cover a full block go through a read-modify-write cycle so the untouched
// bytes of the block survive.
package blockio

import (
	"github.com/trusslab/octopos-filesystem/blockdev"
)

// ReadAt copies len(dst) bytes out of `block` starting at byte `offset`
// within the block. It returns the number of bytes copied: len(dst) on
// success, 0 if the span doesn't fit in one block or the device read came
// up short.
func ReadAt(dev blockdev.Device, dst []byte, block blockdev.BlockIndex, offset uint32) int {
	if uint64(offset)+uint64(len(dst)) > blockdev.BlockSize {
		return 0
	}

	raw := make([]byte, blockdev.BlockSize)
	if dev.ReadBlocks(raw, block, 1) != blockdev.BlockSize {
		return 0
	}

	copy(dst, raw[offset:int(offset)+len(dst)])
	return len(dst)
}

// WriteAt splices len(src) bytes into `block` starting at byte `offset`
// within the block and returns the number of bytes written to the device.
// A span covering the entire block skips the preparatory read.
func WriteAt(dev blockdev.Device, src []byte, block blockdev.BlockIndex, offset uint32) int {
	if uint64(offset)+uint64(len(src)) > blockdev.BlockSize {
		return 0
	}

	if offset == 0 && len(src) == blockdev.BlockSize {
		return dev.WriteBlocks(src, block, 1)
	}

	raw := make([]byte, blockdev.BlockSize)
	if dev.ReadBlocks(raw, block, 1) != blockdev.BlockSize {
		return 0
	}
	copy(raw[offset:], src)

	if dev.WriteBlocks(raw, block, 1) != blockdev.BlockSize {
		return 0
	}
	return len(src)
}
