package fat32

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// rawBootSector is the on-disk layout of the first 52 bytes of a FAT32 boot
// sector. Field order and widths match the BPB byte for byte, so decoding it
// with encoding/binary in little-endian mode reads every field from its
// standard offset.
type rawBootSector struct {
	JmpBoot           [3]byte  // offset 0
	OEMName           [8]byte  // offset 3
	BytesPerSector    uint16   // offset 11
	SectorsPerCluster uint8    // offset 13
	ReservedSectors   uint16   // offset 14
	NumFATs           uint8    // offset 16
	RootEntryCount    uint16   // offset 17, must be 0 on FAT32
	TotalSectors16    uint16   // offset 19
	Media             uint8    // offset 21
	FATSize16         uint16   // offset 22, must be 0 on FAT32
	SectorsPerTrack   uint16   // offset 24
	NumHeads          uint16   // offset 26
	HiddenSectors     uint32   // offset 28
	TotalSectors32    uint32   // offset 32
	FATSize32         uint32   // offset 36
	ExtFlags          uint16   // offset 40
	FSVersion         uint16   // offset 42
	RootCluster       uint32   // offset 44
	FSInfoSector      uint16   // offset 48
	BackupBootSector  uint16   // offset 50
}

// Geometry is the parsed boot sector: every field the driver needs to compute
// any address on the volume. It is constructed once at mount time and never
// mutated afterwards.
type Geometry struct {
	// BytesPerSector is always 512; any other value fails validation.
	BytesPerSector uint16
	// SectorsPerCluster is a nonzero power of two.
	SectorsPerCluster uint8
	// ReservedSectors is the number of sectors before the FAT region.
	ReservedSectors uint16
	// NumFATs is the number of FAT copies on the volume. Only copy #0 is
	// ever written by this driver.
	NumFATs uint8
	// TotalSectors is the 32-bit total sector count.
	TotalSectors uint32
	// FATSize is the size of one FAT copy, in sectors.
	FATSize uint32
	// RootCluster is the first cluster of the root directory, always >= 2.
	RootCluster uint32
	// FSInfoSector is the FSInfo sector index. Parsed but unused; this
	// driver maintains no free-space hints.
	FSInfoSector uint16
}

// boot sector trailer, offsets 510-511
const (
	bootSignatureOffset = 510
	bootSignature0      = 0x55
	bootSignature1      = 0xAA
)

// ParseBootSector validates a 512-byte boot sector and returns the volume
// geometry. It is a pure function of the input bytes.
//
// Failure kinds are deliberately distinct: a sector that is structurally
// broken (bad signature, unsupported sector size, zeroed geometry fields)
// fails with [ErrInvalidBootSector], while a well-formed sector that
// describes a FAT12/16 volume fails with [ErrNotFAT32].
func ParseBootSector(boot []byte) (Geometry, error) {
	if len(boot) != SectorSize {
		return Geometry{}, ErrInvalidArgument.WithMessage(
			fmt.Sprintf("boot sector must be %d bytes, got %d", SectorSize, len(boot)))
	}

	if boot[bootSignatureOffset] != bootSignature0 ||
		boot[bootSignatureOffset+1] != bootSignature1 {
		return Geometry{}, ErrInvalidBootSector.WithMessage("missing 0x55AA signature")
	}

	var raw rawBootSector
	err := binary.Read(bytes.NewReader(boot), binary.LittleEndian, &raw)
	if err != nil {
		return Geometry{}, ErrInvalidBootSector.Wrap(err)
	}

	if raw.BytesPerSector != SectorSize {
		return Geometry{}, ErrInvalidBootSector.WithMessage(
			fmt.Sprintf("unsupported sector size %d", raw.BytesPerSector))
	}

	// FAT32 discriminators. A nonzero root entry count or 16-bit FAT size
	// means the sector describes a FAT12/16 volume, which is a different
	// failure than a malformed sector.
	if raw.RootEntryCount != 0 {
		return Geometry{}, ErrNotFAT32.WithMessage(
			fmt.Sprintf("root entry count is %d, expected 0", raw.RootEntryCount))
	}
	if raw.FATSize16 != 0 {
		return Geometry{}, ErrNotFAT32.WithMessage(
			fmt.Sprintf("16-bit FAT size is %d, expected 0", raw.FATSize16))
	}

	if raw.FATSize32 == 0 {
		return Geometry{}, ErrInvalidBootSector.WithMessage("32-bit FAT size is 0")
	}
	if raw.RootCluster < FirstDataCluster {
		return Geometry{}, ErrInvalidBootSector.WithMessage(
			fmt.Sprintf("root cluster is %d, must be at least %d",
				raw.RootCluster, FirstDataCluster))
	}
	if raw.SectorsPerCluster == 0 ||
		raw.SectorsPerCluster&(raw.SectorsPerCluster-1) != 0 {
		return Geometry{}, ErrInvalidBootSector.WithMessage(
			fmt.Sprintf("sectors per cluster must be a nonzero power of two, got %d",
				raw.SectorsPerCluster))
	}
	if raw.ReservedSectors == 0 {
		return Geometry{}, ErrInvalidBootSector.WithMessage("reserved sector count is 0")
	}
	if raw.NumFATs == 0 {
		return Geometry{}, ErrInvalidBootSector.WithMessage("FAT count is 0")
	}

	return Geometry{
		BytesPerSector:    raw.BytesPerSector,
		SectorsPerCluster: raw.SectorsPerCluster,
		ReservedSectors:   raw.ReservedSectors,
		NumFATs:           raw.NumFATs,
		TotalSectors:      raw.TotalSectors32,
		FATSize:           raw.FATSize32,
		RootCluster:       raw.RootCluster,
		FSInfoSector:      raw.FSInfoSector,
	}, nil
}
