package octofs

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trusslab/octopos-filesystem/blockdev"
)

func TestFormatWritesSignatureAndEmptyCount(t *testing.T) {
	dev := blockdev.NewMemDevice(16)
	page := newDirectoryPage(dev)
	require.NoError(t, page.format())

	onDisk := make([]byte, DirDataSize)
	require.Equal(t, DirDataSize, dev.ReadBlocks(onDisk, 0, DirBlocks))
	assert.Equal(t, []byte{'$', '%', '^', '&'}, onDisk[:4])
	assert.EqualValues(t, 0, binary.LittleEndian.Uint16(onDisk[4:]))
}

func TestAddFileSerializesRecordAndFlushes(t *testing.T) {
	dev := blockdev.NewMemDevice(16)
	page := newDirectoryPage(dev)
	require.NoError(t, page.format())

	entry := &FileEntry{name: "hello", startBlock: 2, numBlocks: 3, size: 1200}
	require.NoError(t, page.addFile(entry))
	assert.EqualValues(t, dirFirstRecordOffset, entry.dirOffset)
	assert.EqualValues(t, 1, page.fileCount())

	onDisk := make([]byte, DirDataSize)
	require.Equal(t, DirDataSize, dev.ReadBlocks(onDisk, 0, DirBlocks))

	record := onDisk[dirFirstRecordOffset:]
	assert.EqualValues(t, 5, binary.LittleEndian.Uint16(record))
	assert.Equal(t, []byte("hello\x00"), record[2:8])
	assert.EqualValues(t, 2, binary.LittleEndian.Uint32(record[8:]))
	assert.EqualValues(t, 3, binary.LittleEndian.Uint32(record[12:]))
	assert.EqualValues(t, 1200, binary.LittleEndian.Uint32(record[16:]))
}

func TestRecoverRoundTrip(t *testing.T) {
	dev := blockdev.NewMemDevice(16)
	page := newDirectoryPage(dev)
	require.NoError(t, page.format())

	originals := []*FileEntry{
		{name: "boot", startBlock: 2, numBlocks: 4, size: 2000},
		{name: "kernel"},
		{name: "config", startBlock: 6, numBlocks: 1, size: 80},
	}
	for _, entry := range originals {
		require.NoError(t, page.addFile(entry))
	}

	// A second page instance reading the same device must see it all.
	fresh := newDirectoryPage(dev)
	require.NoError(t, fresh.load())
	require.True(t, fresh.hasSignature())

	recovered := fresh.recover()
	require.Len(t, recovered, 3)
	for i, entry := range recovered {
		assert.Equal(t, originals[i].name, entry.name)
		assert.Equal(t, originals[i].startBlock, entry.startBlock)
		assert.Equal(t, originals[i].numBlocks, entry.numBlocks)
		assert.Equal(t, originals[i].size, entry.size)
		assert.Equal(t, originals[i].dirOffset, entry.dirOffset)
		assert.False(t, entry.opened)
	}
	assert.Equal(t, page.cursor, fresh.cursor)
}

func TestUpdateFileRewritesInPlace(t *testing.T) {
	dev := blockdev.NewMemDevice(16)
	page := newDirectoryPage(dev)
	require.NoError(t, page.format())

	first := &FileEntry{name: "a"}
	second := &FileEntry{name: "b"}
	require.NoError(t, page.addFile(first))
	require.NoError(t, page.addFile(second))

	first.startBlock = 2
	first.numBlocks = 2
	first.size = 700
	require.NoError(t, page.updateFile(first))

	fresh := newDirectoryPage(dev)
	require.NoError(t, fresh.load())
	recovered := fresh.recover()
	require.Len(t, recovered, 2)
	assert.EqualValues(t, 700, recovered[0].size)
	assert.Equal(t, "b", recovered[1].name)
}

func TestAddFileFailsWhenPageIsFull(t *testing.T) {
	dev := blockdev.NewMemDevice(16)
	page := newDirectoryPage(dev)
	require.NoError(t, page.format())

	// 16-byte names make 31-byte records; 32 of them fit in the 1018 bytes
	// after the header, the 33rd does not.
	name := strings.Repeat("n", 16)
	added := 0
	for {
		err := page.addFile(&FileEntry{name: name})
		if err != nil {
			require.ErrorIs(t, err, ErrDirectoryFull)
			break
		}
		added++
		require.Less(t, added, 100, "page never filled up")
	}
	assert.Equal(t, 32, added)
	assert.EqualValues(t, added, page.fileCount())
}

func TestRecoverStopsSilentlyAtMalformedRecord(t *testing.T) {
	dev := blockdev.NewMemDevice(16)
	page := newDirectoryPage(dev)
	require.NoError(t, page.format())

	good := &FileEntry{name: "intact", startBlock: 2, numBlocks: 1, size: 10}
	bad := &FileEntry{name: "broken", startBlock: 3, numBlocks: 1, size: 10}
	require.NoError(t, page.addFile(good))
	require.NoError(t, page.addFile(bad))

	// Corrupt the second record's name length beyond the filename limit.
	binary.LittleEndian.PutUint16(page.data[bad.dirOffset:], MaxFilenameSize+1)
	require.NoError(t, page.flush())

	fresh := newDirectoryPage(dev)
	require.NoError(t, fresh.load())
	recovered := fresh.recover()

	// The malformed record and everything after it are silently dropped.
	require.Len(t, recovered, 1)
	assert.Equal(t, "intact", recovered[0].name)
}
