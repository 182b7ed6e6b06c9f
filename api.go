// Package fat32 implements a FAT32 driver that operates directly on a raw
// 512-byte-sector block device.
//
// The driver core is deliberately small: it parses the boot sector, walks and
// mutates the File Allocation Table, translates cluster numbers to physical
// sectors, and reads and writes 8.3 files in the root directory. Everything
// on disk is decoded from fixed-size byte buffers at compile-time-known
// offsets; there is no generic binary-parsing layer in between.
//
// The block device itself is an external collaborator. Anything that can read
// and write whole 512-byte sectors can back the driver; see [SectorDevice]
// and the device subpackage for ready-made implementations.
package fat32

// SectorSize is the only sector size this driver supports. FAT technically
// allows 1024, 2048 and 4096 as well, but 512 is what virtually every device
// and driver in the wild uses.
const SectorSize = 512

// SectorDevice is the capability a block device must provide: read a whole
// sector, write a whole sector. There are no partial transfers; both
// operations either succeed completely or fail with an I/O error.
//
// Implementations are expected to be things like a memory-mapped disk image,
// a hardware driver, or an in-memory buffer for tests. A mounted
// [FileSystem] owns its device exclusively; accessing the same device
// through two handles at once is undefined behavior.
type SectorDevice interface {
	// ReadSector reads the 512-byte sector at the given LBA into buf.
	// buf must be exactly SectorSize bytes long.
	ReadSector(lba uint64, buf []byte) error

	// WriteSector writes the 512-byte sector at the given LBA from data.
	// data must be exactly SectorSize bytes long.
	WriteSector(lba uint64, data []byte) error
}
