package blockdev

import (
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// StreamDevice exposes any io.ReadWriteSeeker as a fixed-geometry block
// device. The stream must be at least TotalBlocks*BlockSize bytes long;
// a disk image file opened with os.OpenFile is the usual case.
type StreamDevice struct {
	stream      io.ReadWriteSeeker
	totalBlocks uint32
}

// NewStreamDevice wraps `stream` as a device of `totalBlocks` blocks.
func NewStreamDevice(stream io.ReadWriteSeeker, totalBlocks uint32) *StreamDevice {
	return &StreamDevice{
		stream:      stream,
		totalBlocks: totalBlocks,
	}
}

// NewMemDevice creates a device backed entirely by memory. Freshly created
// devices read back all zeroes, matching the lazy zero-fill contract.
func NewMemDevice(totalBlocks uint32) *StreamDevice {
	storage := make([]byte, int64(totalBlocks)*BlockSize)
	return NewStreamDevice(bytesextra.NewReadWriteSeeker(storage), totalBlocks)
}

// TotalBlocks returns the device geometry.
func (dev *StreamDevice) TotalBlocks() uint32 {
	return dev.totalBlocks
}

func (dev *StreamDevice) seekToBlock(block BlockIndex, count uint32) bool {
	if uint64(block)+uint64(count) > uint64(dev.totalBlocks) {
		return false
	}
	_, err := dev.stream.Seek(int64(block)*BlockSize, io.SeekStart)
	return err == nil
}

// ReadBlocks implements [Device].
func (dev *StreamDevice) ReadBlocks(buf []byte, start BlockIndex, count uint32) int {
	byteCount := int(count) * BlockSize
	if len(buf) < byteCount || !dev.seekToBlock(start, count) {
		return 0
	}

	nRead, _ := io.ReadFull(dev.stream, buf[:byteCount])
	return nRead
}

// WriteBlocks implements [Device].
func (dev *StreamDevice) WriteBlocks(buf []byte, start BlockIndex, count uint32) int {
	byteCount := int(count) * BlockSize
	if len(buf) < byteCount || !dev.seekToBlock(start, count) {
		return 0
	}

	nWritten, _ := dev.stream.Write(buf[:byteCount])
	return nWritten
}
