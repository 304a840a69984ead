package picodump

import "github.com/pkg/errors"

// Region state, protection and type flags as reported by the kernel memory
// query. Declared here so the selection predicate stays OS-independent.
const (
	memCommit uint32 = 0x1000

	memMapped uint32 = 0x40000
	memImage  uint32 = 0x1000000

	pageNoAccess uint32 = 0x01
	pageGuard    uint32 = 0x100
)

func isImportantModule(addr uint64, modules []*Module) bool {
	for _, m := range modules {
		if addr >= m.Base && addr < m.Base+uint64(m.Size) {
			return true
		}
	}
	return false
}

// includeRegion decides whether a region contributes to the dump. Private
// committed memory holds the credential material; image regions are kept
// only for the allow-listed modules so the parser can resolve code it
// references. Everything else just inflates the artifact.
func includeRegion(r *MemoryRegion, modules []*Module) bool {
	if r.State != memCommit {
		return false
	}
	if r.Protect&pageNoAccess == pageNoAccess {
		return false
	}
	if r.Protect&pageGuard == pageGuard {
		return false
	}
	if r.Type == memMapped {
		return false
	}
	if r.Type == memImage && !isImportantModule(r.Base, modules) {
		return false
	}
	return true
}

// collectMemoryRanges walks the target's address space from address zero and
// returns the selected regions in traversal order. Any query failure ends
// the walk; only a failure on the very first query is fatal, since address
// space walks do not recover.
func collectMemoryRanges(target Target, modules []*Module) ([]*MemoryRegion, error) {
	var ranges []*MemoryRegion
	var addr uint64
	for first := true; ; first = false {
		region, err := target.QueryRegion(addr)
		if err != nil || region == nil {
			if first {
				return nil, errors.Wrap(ErrAddressSpaceQueryFailed, "memory enumeration could not start")
			}
			break
		}
		addr = region.Base + region.Size
		if !includeRegion(region, modules) {
			continue
		}
		ranges = append(ranges, region)
	}
	return ranges, nil
}
