// Package mkfs creates empty FAT32 volumes on raw sector devices. It is the
// image-building collaborator of the fat32 driver: everything it writes must
// mount cleanly with fat32.Mount.
package mkfs

import (
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"

	"github.com/dargueta/fat32"
)

// Params describes the volume to create. Most callers should start from a
// preset (see [GetPreset]) instead of filling this in by hand.
type Params struct {
	// TotalSectors is the size of the volume in 512-byte sectors.
	TotalSectors uint32
	// SectorsPerCluster must be a nonzero power of two.
	SectorsPerCluster uint8
	// ReservedSectors is the number of sectors before the first FAT copy.
	// FAT32 volumes conventionally use 32.
	ReservedSectors uint16
	// NumFATs is the number of FAT copies to lay out.
	NumFATs uint8
	// FATSize is the size of one FAT copy in sectors.
	FATSize uint32
}

// mediaFixedDisk is the media descriptor byte for a non-removable disk, also
// stored in the low byte of FAT entry 0.
const mediaFixedDisk = 0xF8

// rootCluster is where Format places the root directory. Cluster 2 is the
// first data cluster, which is where every real formatter puts it.
const rootCluster = fat32.FirstDataCluster

func (p Params) validate() error {
	if p.SectorsPerCluster == 0 || p.SectorsPerCluster&(p.SectorsPerCluster-1) != 0 {
		return fat32.ErrInvalidArgument.WithMessage(fmt.Sprintf(
			"sectors per cluster must be a nonzero power of two, got %d",
			p.SectorsPerCluster))
	}
	if p.ReservedSectors == 0 {
		return fat32.ErrInvalidArgument.WithMessage("reserved sector count cannot be 0")
	}
	if p.NumFATs == 0 {
		return fat32.ErrInvalidArgument.WithMessage("FAT copy count cannot be 0")
	}
	if p.FATSize == 0 {
		return fat32.ErrInvalidArgument.WithMessage("FAT size cannot be 0")
	}

	// The FAT must at least hold its two reserved entries plus the root
	// directory cluster.
	if p.FATSize*(fat32.SectorSize/4) < rootCluster+1 {
		return fat32.ErrInvalidArgument.WithMessage("FAT too small for the root directory")
	}

	metadataSectors := uint64(p.ReservedSectors) + uint64(p.NumFATs)*uint64(p.FATSize)
	minimum := metadataSectors + uint64(p.SectorsPerCluster)
	if uint64(p.TotalSectors) < minimum {
		return fat32.ErrInvalidArgument.WithMessage(fmt.Sprintf(
			"volume needs at least %d sectors for metadata plus one cluster, got %d",
			minimum, p.TotalSectors))
	}
	return nil
}

// Format writes a blank FAT32 volume described by p onto dev: a boot sector,
// zeroed FAT copies with their reserved entries, and an empty root directory
// in cluster 2. Any previous contents of those regions are destroyed; data
// sectors beyond the root cluster are left untouched.
func Format(dev fat32.SectorDevice, p Params) error {
	err := p.validate()
	if err != nil {
		return err
	}

	boot, err := buildBootSector(p)
	if err != nil {
		return err
	}
	err = dev.WriteSector(0, boot)
	if err != nil {
		return err
	}

	err = writeFATRegion(dev, p)
	if err != nil {
		return err
	}

	// Zero the root directory cluster so the first slot reads as
	// end-of-directory.
	geo := fat32.Geometry{
		BytesPerSector:    fat32.SectorSize,
		SectorsPerCluster: p.SectorsPerCluster,
		ReservedSectors:   p.ReservedSectors,
		NumFATs:           p.NumFATs,
		TotalSectors:      p.TotalSectors,
		FATSize:           p.FATSize,
		RootCluster:       rootCluster,
	}
	zero := make([]byte, fat32.SectorSize)
	base := geo.FirstSectorOfCluster(rootCluster)
	for s := uint64(0); s < uint64(p.SectorsPerCluster); s++ {
		err = dev.WriteSector(base+s, zero)
		if err != nil {
			return err
		}
	}
	return nil
}

// buildBootSector serializes the boot sector for p. Fields are written
// strictly in on-disk order into a fixed 512-byte buffer.
func buildBootSector(p Params) ([]byte, error) {
	boot := make([]byte, fat32.SectorSize)
	writer := bytewriter.New(boot)

	writer.Write([]byte{0xEB, 0x58, 0x90}) // jump instruction
	writer.Write([]byte("FAT32KIT"))       // OEM name, 8 bytes

	fields := []interface{}{
		uint16(fat32.SectorSize),  // bytes per sector
		p.SectorsPerCluster,       //
		p.ReservedSectors,         //
		p.NumFATs,                 //
		uint16(0),                 // root entry count, always 0 on FAT32
		uint16(0),                 // 16-bit total sectors
		uint8(mediaFixedDisk),     // media descriptor
		uint16(0),                 // 16-bit FAT size, always 0 on FAT32
		uint16(32),                // sectors per track (CHS remnant)
		uint16(8),                 // number of heads (CHS remnant)
		uint32(0),                 // hidden sectors
		p.TotalSectors,            // 32-bit total sectors
		p.FATSize,                 // 32-bit FAT size
		uint16(0),                 // ext flags: mirroring enabled
		uint16(0),                 // file system version 0.0
		uint32(rootCluster),       //
		uint16(1),                 // FSInfo sector
		uint16(0),                 // no backup boot sector
		[12]byte{},                // reserved
		uint8(0x80),               // BIOS drive number
		uint8(0),                  // reserved
		uint8(0x29),               // extended boot signature
		uint32(0),                 // volume serial number
	}
	for _, field := range fields {
		err := binary.Write(writer, binary.LittleEndian, field)
		if err != nil {
			return nil, fat32.ErrInvalidArgument.Wrap(err)
		}
	}
	writer.Write([]byte("NO NAME    ")) // volume label, 11 bytes
	writer.Write([]byte("FAT32   "))    // file system type, 8 bytes

	boot[510] = 0x55
	boot[511] = 0xAA
	return boot, nil
}

// writeFATRegion zeroes every FAT copy and writes the reserved entries into
// each: entry 0 carries the media descriptor, entry 1 is reserved, and the
// root directory cluster is terminated. All copies start out identical;
// keeping them that way afterwards is outside this driver's scope.
func writeFATRegion(dev fat32.SectorDevice, p Params) error {
	firstSector := make([]byte, fat32.SectorSize)
	binary.LittleEndian.PutUint32(firstSector[0:], 0x0FFFFF00|mediaFixedDisk)
	binary.LittleEndian.PutUint32(firstSector[4:], fat32.EndOfChain)
	binary.LittleEndian.PutUint32(firstSector[rootCluster*4:], fat32.EndOfChain)

	zero := make([]byte, fat32.SectorSize)
	fatStart := uint64(p.ReservedSectors)

	for copyIndex := uint8(0); copyIndex < p.NumFATs; copyIndex++ {
		base := fatStart + uint64(copyIndex)*uint64(p.FATSize)

		err := dev.WriteSector(base, firstSector)
		if err != nil {
			return err
		}
		for s := uint64(1); s < uint64(p.FATSize); s++ {
			err = dev.WriteSector(base+s, zero)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
