package octofs

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	multierror "github.com/hashicorp/go-multierror"
)

// Check verifies the structural invariants of the mounted file system and
// returns every violation it finds, gathered into one error. It reads only;
// nothing is repaired. A nil return means the state is consistent.
//
// The checks cover the extent map (in bounds, pairwise disjoint), the
// per-file coupling between size, block count and start block, the
// directory page header against the registry, and the handle table.
func (fs *FileSystem) Check() error {
	var violations *multierror.Error

	if !fs.dir.hasSignature() {
		violations = multierror.Append(violations,
			ErrCorrupted.WithMessage("resident page has no directory signature"))
	}

	if count := fs.dir.fileCount(); int(count) != len(fs.reg.entries) {
		violations = multierror.Append(violations, fmt.Errorf(
			"directory page declares %d files but %d records were recovered",
			count, len(fs.reg.entries)))
	}

	usedBlocks := bitset.New(uint(fs.totalBlocks))
	for _, entry := range fs.reg.entries {
		violations = multierror.Append(violations, fs.checkEntry(entry, usedBlocks))
	}

	openCount := make(map[*FileEntry]int)
	for fd := Handle(1); fd < MaxHandles; fd++ {
		entry := fs.handles.get(fd)
		if entry == nil {
			continue
		}
		openCount[entry]++
		if !entry.opened {
			violations = multierror.Append(violations, fmt.Errorf(
				"handle %d refers to %q, which is not marked open", fd, entry.name))
		}
	}
	for entry, handles := range openCount {
		if handles > 1 {
			violations = multierror.Append(violations, fmt.Errorf(
				"file %q has %d live handles, the limit is one", entry.name, handles))
		}
	}

	return violations.ErrorOrNil()
}

// checkEntry validates a single file and claims its blocks in `usedBlocks`
// so overlaps with later entries are caught.
func (fs *FileSystem) checkEntry(entry *FileEntry, usedBlocks *bitset.BitSet) error {
	var violations *multierror.Error

	if entry.numBlocks == 0 {
		if entry.size != 0 || entry.startBlock != 0 {
			violations = multierror.Append(violations, fmt.Errorf(
				"empty file %q must have zero size and start block, has size=%d start=%d",
				entry.name, entry.size, entry.startBlock))
		}
		return violations.ErrorOrNil()
	}

	if entry.size == 0 {
		violations = multierror.Append(violations, fmt.Errorf(
			"file %q owns %d blocks but has zero size", entry.name, entry.numBlocks))
	}
	if entry.size > entry.numBlocks*BlockSize {
		violations = multierror.Append(violations, fmt.Errorf(
			"file %q has size %d exceeding its %d-block capacity",
			entry.name, entry.size, entry.numBlocks))
	}

	start := uint64(entry.startBlock)
	end := start + uint64(entry.numBlocks)
	if start < DirBlocks || end > uint64(fs.totalBlocks) {
		violations = multierror.Append(violations, fmt.Errorf(
			"file %q extent [%d, %d) is outside the payload area [%d, %d)",
			entry.name, start, end, DirBlocks, fs.totalBlocks))
		return violations.ErrorOrNil()
	}

	for block := start; block < end; block++ {
		if usedBlocks.Test(uint(block)) {
			violations = multierror.Append(violations, fmt.Errorf(
				"file %q extent [%d, %d) overlaps an earlier file at block %d",
				entry.name, start, end, block))
			break
		}
		usedBlocks.Set(uint(block))
	}

	return violations.ErrorOrNil()
}
