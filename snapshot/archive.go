package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"code.kestrelchain.io/kestrel/types"
)

// Archive file names carry everything needed to pick a restore candidate
// without opening the file: slot and content hash for full archives, plus
// the base slot for incrementals.
//
//	snapshot-<slot>-<hash>.snap.gz
//	incremental-snapshot-<base>-<slot>-<hash>.snap.gz
const archiveExt = ".snap.gz"

var (
	ErrNotAnArchive = errors.New("not a snapshot archive file name")

	fullArchiveRE        = regexp.MustCompile(`^snapshot-(\d+)-([0-9a-f]{64})\.snap\.gz$`)
	incrementalArchiveRE = regexp.MustCompile(`^incremental-snapshot-(\d+)-(\d+)-([0-9a-f]{64})\.snap\.gz$`)
)

// FullArchiveInfo identifies one full snapshot archive.
type FullArchiveInfo struct {
	Path string
	Slot types.Slot
	Hash types.Hash
}

// IncrementalArchiveInfo identifies one incremental snapshot archive chained
// to the full archive at BaseSlot.
type IncrementalArchiveInfo struct {
	Path     string
	BaseSlot types.Slot
	Slot     types.Slot
	Hash     types.Hash
}

// FullArchiveName builds the file name for a full archive.
func FullArchiveName(slot types.Slot, hash types.Hash) string {
	return fmt.Sprintf("snapshot-%d-%s%s", slot, hash, archiveExt)
}

// IncrementalArchiveName builds the file name for an incremental archive.
func IncrementalArchiveName(base, slot types.Slot, hash types.Hash) string {
	return fmt.Sprintf("incremental-snapshot-%d-%d-%s%s", base, slot, hash, archiveExt)
}

// ParseFullArchiveName parses a full archive file name.
func ParseFullArchiveName(name string) (FullArchiveInfo, error) {
	m := fullArchiveRE.FindStringSubmatch(name)
	if m == nil {
		return FullArchiveInfo{}, fmt.Errorf("%w: %s", ErrNotAnArchive, name)
	}
	slot, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return FullArchiveInfo{}, err
	}
	hash, err := types.HashFromHex(m[2])
	if err != nil {
		return FullArchiveInfo{}, err
	}
	return FullArchiveInfo{Slot: types.Slot(slot), Hash: hash}, nil
}

// ParseIncrementalArchiveName parses an incremental archive file name.
func ParseIncrementalArchiveName(name string) (IncrementalArchiveInfo, error) {
	m := incrementalArchiveRE.FindStringSubmatch(name)
	if m == nil {
		return IncrementalArchiveInfo{}, fmt.Errorf("%w: %s", ErrNotAnArchive, name)
	}
	base, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return IncrementalArchiveInfo{}, err
	}
	slot, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return IncrementalArchiveInfo{}, err
	}
	hash, err := types.HashFromHex(m[3])
	if err != nil {
		return IncrementalArchiveInfo{}, err
	}
	return IncrementalArchiveInfo{
		BaseSlot: types.Slot(base),
		Slot:     types.Slot(slot),
		Hash:     hash,
	}, nil
}

// HighestFullArchiveInfo scans dir and returns the full archive with the
// highest slot, or nil when none exists. File names that don't parse are
// skipped, a foreign file in the archive dir is not an error.
func HighestFullArchiveInfo(dir string) (*FullArchiveInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var best *FullArchiveInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := ParseFullArchiveName(e.Name())
		if err != nil {
			continue
		}
		info.Path = filepath.Join(dir, e.Name())
		if best == nil || info.Slot > best.Slot {
			cp := info
			best = &cp
		}
	}
	return best, nil
}

// HighestIncrementalArchiveInfo scans dir for the incremental archive with
// the highest slot whose base is exactly the given full snapshot slot.
// An incremental chained to any other full snapshot is not a candidate.
func HighestIncrementalArchiveInfo(dir string, base types.Slot) (*IncrementalArchiveInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var best *IncrementalArchiveInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := ParseIncrementalArchiveName(e.Name())
		if err != nil {
			continue
		}
		if info.BaseSlot != base {
			continue
		}
		info.Path = filepath.Join(dir, e.Name())
		if best == nil || info.Slot > best.Slot {
			cp := info
			best = &cp
		}
	}
	return best, nil
}
