package fat32

import (
	"encoding/binary"
	"fmt"
)

const (
	// EntryMask selects the 28 meaningful bits of a raw 32-bit FAT entry.
	// The top 4 bits are reserved by the standard.
	EntryMask = 0x0FFFFFFF

	// EndOfChain is the canonical end-of-chain marker this driver writes.
	EndOfChain = 0x0FFFFFFF

	// endOfChainMin is the lowest entry value that still terminates a chain.
	endOfChainMin = 0x0FFFFFF8

	// FreeCluster marks a FAT entry as unallocated.
	FreeCluster = 0

	// maxFreeScanIterations bounds the linear free-cluster scan so a fully
	// packed or damaged FAT cannot spin forever.
	maxFreeScanIterations = 1_000_000

	entriesPerSector = SectorSize / 4
)

// IsEndOfChain reports whether a FAT entry value terminates a cluster chain.
func IsEndOfChain(value uint32) bool {
	return value >= endOfChainMin
}

// FAT reads and writes entries of the File Allocation Table of one volume.
// The FAT itself is the only representation of cluster chains on disk; there
// is no separate chain object anywhere.
//
// Every entry access is a full sector transfer: reads fetch the containing
// sector, writes are read-modify-write of the containing sector. Only FAT
// copy #0 is ever touched. Additional copies are never mirrored, which is a
// documented scope limitation of this driver.
type FAT struct {
	dev SectorDevice
	geo Geometry
}

// NewFAT returns an accessor for the first FAT copy of the volume described
// by geo.
func NewFAT(dev SectorDevice, geo Geometry) FAT {
	return FAT{dev: dev, geo: geo}
}

// entryLocation returns the LBA of the FAT sector holding the entry for
// cluster, and the byte offset of the entry within that sector.
func (f FAT) entryLocation(cluster uint32) (lba uint64, offset uint) {
	byteOffset := uint64(cluster) * 4
	return f.geo.FATStartLBA() + byteOffset/SectorSize, uint(byteOffset % SectorSize)
}

// Entry returns the FAT entry for cluster, masked to its 28 meaningful bits.
// 0 means the cluster is free, values in [2, end-of-chain) point to the next
// cluster of a chain, and anything >= 0x0FFFFFF8 is an end-of-chain marker.
func (f FAT) Entry(cluster uint32) (uint32, error) {
	lba, offset := f.entryLocation(cluster)

	buffer := make([]byte, SectorSize)
	err := f.dev.ReadSector(lba, buffer)
	if err != nil {
		return 0, ErrIOFailed.Wrap(err)
	}
	return binary.LittleEndian.Uint32(buffer[offset:offset+4]) & EntryMask, nil
}

// SetEntry writes the FAT entry for cluster via a read-modify-write of the
// containing sector.
//
// The value is masked to 28 bits and the reserved top nibble is always
// stored as zero, so reserved bits do not round-trip through this driver.
// Callers must not rely on reserved-bit persistence.
func (f FAT) SetEntry(cluster uint32, value uint32) error {
	lba, offset := f.entryLocation(cluster)

	buffer := make([]byte, SectorSize)
	err := f.dev.ReadSector(lba, buffer)
	if err != nil {
		return ErrIOFailed.Wrap(err)
	}

	binary.LittleEndian.PutUint32(buffer[offset:offset+4], value&EntryMask)

	err = f.dev.WriteSector(lba, buffer)
	if err != nil {
		return ErrIOFailed.Wrap(err)
	}
	return nil
}

// maxEntries returns the number of entries the FAT region can hold. Entries
// past this point would live outside the FAT sectors, so scanning them is
// meaningless.
func (f FAT) maxEntries() uint32 {
	return f.geo.FATSize * entriesPerSector
}

// FindFree scans cluster numbers upward from max(startFrom, 2) and returns
// the first cluster whose FAT entry is zero.
//
// The scan is linear and O(n) per allocation; that is the dominant cost of
// multi-cluster writes and is acceptable at the scale this driver targets.
// No free list or bitmap is maintained. The scan stops at the end of the FAT
// region or after a large iteration cap, whichever comes first, and reports
// [ErrNoSpaceOnDevice] if no free entry was found by then.
func (f FAT) FindFree(startFrom uint32) (uint32, error) {
	cluster := startFrom
	if cluster < FirstDataCluster {
		cluster = FirstDataCluster
	}

	limit := f.maxEntries()
	if scanCap := uint64(cluster) + maxFreeScanIterations; scanCap < uint64(limit) {
		limit = uint32(scanCap)
	}

	for ; cluster < limit; cluster++ {
		value, err := f.Entry(cluster)
		if err != nil {
			return 0, err
		}
		if value == FreeCluster {
			return cluster, nil
		}
	}
	return 0, ErrNoSpaceOnDevice.WithMessage(
		fmt.Sprintf("no free cluster at or above %d", startFrom))
}
