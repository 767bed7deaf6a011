package octofs

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"
	"github.com/trusslab/octopos-filesystem/blockdev"
)

// directorySignature marks blocks [0, DirBlocks) as holding a valid
// directory page.
var directorySignature = [4]byte{'$', '%', '^', '&'}

const dirFileCountOffset = 4
const dirFirstRecordOffset = 6

// directoryPage is the resident copy of the first DirBlocks blocks of the
// partition. Every mutation rewrites the affected record in the buffer and
// flushes the whole page back to the device; records are append-only and
// never move, which is what lets the page stay persistent without any
// journaling.
type directoryPage struct {
	dev  blockdev.Device
	data []byte
	// cursor is the next free byte after the last serialized record.
	cursor uint32
}

func newDirectoryPage(dev blockdev.Device) *directoryPage {
	return &directoryPage{
		dev:    dev,
		data:   make([]byte, DirDataSize),
		cursor: dirFirstRecordOffset,
	}
}

// load reads the page from the device into the resident buffer.
func (page *directoryPage) load() error {
	if page.dev.ReadBlocks(page.data, 0, DirBlocks) != DirDataSize {
		return ErrIOFailed.WithMessage("short read of directory blocks")
	}
	return nil
}

// flush writes the entire resident page back to blocks [0, DirBlocks).
func (page *directoryPage) flush() error {
	if page.dev.WriteBlocks(page.data, 0, DirBlocks) != DirDataSize {
		return ErrIOFailed.WithMessage("short write of directory blocks")
	}
	return nil
}

func (page *directoryPage) hasSignature() bool {
	return bytes.Equal(page.data[:4], directorySignature[:])
}

func (page *directoryPage) fileCount() uint16 {
	return binary.LittleEndian.Uint16(page.data[dirFileCountOffset:])
}

func (page *directoryPage) setFileCount(count uint16) {
	binary.LittleEndian.PutUint16(page.data[dirFileCountOffset:], count)
}

// format initializes a fresh page: signature, zero files, empty record
// area, and writes it out.
func (page *directoryPage) format() error {
	for i := range page.data {
		page.data[i] = 0
	}
	copy(page.data[:4], directorySignature[:])
	page.setFileCount(0)
	page.cursor = dirFirstRecordOffset
	return page.flush()
}

// serializeRecord writes the entry's record at `offset` in the resident
// buffer. The caller guarantees the record fits.
func (page *directoryPage) serializeRecord(entry *FileEntry, offset uint32) {
	writer := bytewriter.New(page.data[offset : offset+entry.recordSize()])

	binary.Write(writer, binary.LittleEndian, uint16(len(entry.name)))
	writer.Write([]byte(entry.name))
	writer.Write([]byte{0})
	binary.Write(writer, binary.LittleEndian, uint32(entry.startBlock))
	binary.Write(writer, binary.LittleEndian, entry.numBlocks)
	binary.Write(writer, binary.LittleEndian, entry.size)
}

// addFile appends the entry's record to the page, stamps its dirOffset,
// bumps the file count, and flushes. Fails with [ErrDirectoryFull] when the
// record would overflow the page.
func (page *directoryPage) addFile(entry *FileEntry) error {
	if page.cursor+entry.recordSize() > DirDataSize {
		return ErrDirectoryFull
	}

	entry.dirOffset = page.cursor
	page.serializeRecord(entry, entry.dirOffset)
	page.cursor += entry.recordSize()
	page.setFileCount(page.fileCount() + 1)
	return page.flush()
}

// updateFile rewrites the entry's record in place and flushes. The record
// length never changes because filenames are immutable after creation.
func (page *directoryPage) updateFile(entry *FileEntry) error {
	page.serializeRecord(entry, entry.dirOffset)
	return page.flush()
}

// recover decodes the records of a loaded page back into file entries. It
// reads at most fileCount records and stops silently at the first record
// that fails a bounds check; whatever decoded up to that point is the
// recovered file set. The append cursor ends up just past the last good
// record.
func (page *directoryPage) recover() []*FileEntry {
	var entries []*FileEntry

	count := page.fileCount()
	offset := uint32(dirFirstRecordOffset)

	for i := uint16(0); i < count; i++ {
		if offset+2 > DirDataSize {
			break
		}
		nameLen := uint32(binary.LittleEndian.Uint16(page.data[offset:]))
		if nameLen > MaxFilenameSize {
			break
		}

		recordLen := nameLen + 15
		if offset+recordLen > DirDataSize {
			break
		}

		entry := &FileEntry{
			name:      string(page.data[offset+2 : offset+2+nameLen]),
			dirOffset: offset,
		}
		fieldBase := offset + 2 + nameLen + 1
		entry.startBlock = blockdev.BlockIndex(
			binary.LittleEndian.Uint32(page.data[fieldBase:]))
		entry.numBlocks = binary.LittleEndian.Uint32(page.data[fieldBase+4:])
		entry.size = binary.LittleEndian.Uint32(page.data[fieldBase+8:])

		entries = append(entries, entry)
		offset += recordLen
	}

	page.cursor = offset
	return entries
}
