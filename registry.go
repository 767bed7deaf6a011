package octofs

import (
	"github.com/trusslab/octopos-filesystem/blockdev"
)

// registry is the ordered in-memory collection of known files, in creation
// order. Lookup is linear; the directory page can hold at most around sixty
// records, so nothing fancier pays for itself.
type registry struct {
	entries []*FileEntry
}

// lookup returns the first entry with the given name, or nil. Duplicate
// names are the caller's mistake; only the oldest entry is ever found.
func (reg *registry) lookup(name string) *FileEntry {
	for _, entry := range reg.entries {
		if entry.name == name {
			return entry
		}
	}
	return nil
}

func (reg *registry) add(entry *FileEntry) {
	reg.entries = append(reg.entries, entry)
}

// highWaterMark returns the first block past every allocated extent, i.e.
// where the append-only allocator places the next new file. Empty files
// don't own blocks and don't move the mark.
func (reg *registry) highWaterMark() blockdev.BlockIndex {
	mark := blockdev.BlockIndex(DirBlocks)
	for _, entry := range reg.entries {
		end := entry.startBlock + blockdev.BlockIndex(entry.numBlocks)
		if entry.numBlocks > 0 && end > mark {
			mark = end
		}
	}
	return mark
}
