package blockio_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trusslab/octopos-filesystem/blockdev"
	"github.com/trusslab/octopos-filesystem/blockio"
)

func TestWriteAtSplicesIntoExistingBlock(t *testing.T) {
	dev := blockdev.NewMemDevice(4)

	base := bytes.Repeat([]byte{'.'}, blockdev.BlockSize)
	require.Equal(t, blockdev.BlockSize, dev.WriteBlocks(base, 2, 1))

	n := blockio.WriteAt(dev, []byte("spliced"), 2, 100)
	require.Equal(t, 7, n)

	// The rest of the block must be untouched.
	readBack := make([]byte, blockdev.BlockSize)
	require.Equal(t, blockdev.BlockSize, dev.ReadBlocks(readBack, 2, 1))
	assert.Equal(t, base[:100], readBack[:100])
	assert.Equal(t, []byte("spliced"), readBack[100:107])
	assert.Equal(t, base[107:], readBack[107:])
}

func TestWriteAtWholeBlockSkipsRead(t *testing.T) {
	dev := blockdev.NewMemDevice(4)

	payload := bytes.Repeat([]byte{0x42}, blockdev.BlockSize)
	n := blockio.WriteAt(dev, payload, 1, 0)
	require.Equal(t, blockdev.BlockSize, n)

	readBack := make([]byte, blockdev.BlockSize)
	require.Equal(t, blockdev.BlockSize, dev.ReadBlocks(readBack, 1, 1))
	assert.Equal(t, payload, readBack)
}

func TestReadAtCopiesRequestedSpan(t *testing.T) {
	dev := blockdev.NewMemDevice(4)

	block := make([]byte, blockdev.BlockSize)
	for i := range block {
		block[i] = byte(i)
	}
	require.Equal(t, blockdev.BlockSize, dev.WriteBlocks(block, 3, 1))

	dst := make([]byte, 16)
	require.Equal(t, 16, blockio.ReadAt(dev, dst, 3, 200))
	assert.Equal(t, block[200:216], dst)
}

func TestSpanMustFitInOneBlock(t *testing.T) {
	dev := blockdev.NewMemDevice(4)
	buf := make([]byte, 16)

	assert.Equal(t, 0, blockio.ReadAt(dev, buf, 0, blockdev.BlockSize-8))
	assert.Equal(t, 0, blockio.WriteAt(dev, buf, 0, blockdev.BlockSize-8))

	// Exactly reaching the end of the block is allowed.
	assert.Equal(t, 16, blockio.WriteAt(dev, buf, 0, blockdev.BlockSize-16))
	assert.Equal(t, 16, blockio.ReadAt(dev, buf, 0, blockdev.BlockSize-16))
}

func TestIOAgainstInvalidBlockComesUpShort(t *testing.T) {
	dev := blockdev.NewMemDevice(4)
	buf := make([]byte, 16)

	assert.Equal(t, 0, blockio.ReadAt(dev, buf, 9, 0))
	assert.Equal(t, 0, blockio.WriteAt(dev, buf, 9, 0))
}
