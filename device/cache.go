package device

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/fat32"
)

// Cache is a write-back sector cache layered over another
// [fat32.SectorDevice]. Reads fetch a sector from the backing device at most
// once; writes land in memory and are published by [Cache.Flush].
//
// The fat32 driver core never uses a Cache itself: its allocate-link-publish
// sequences rely on every write reaching the device immediately. The cache
// exists for batch tooling (the CLI, image builders) where one Flush at the
// end is acceptable.
type Cache struct {
	backing       fat32.SectorDevice
	loadedSectors bitmap.Bitmap
	dirtySectors  bitmap.Bitmap
	totalSectors  uint64
	data          []byte
}

// NewCache creates a cache holding up to totalSectors sectors of backing in
// memory.
func NewCache(backing fat32.SectorDevice, totalSectors uint64) *Cache {
	return &Cache{
		backing:       backing,
		loadedSectors: bitmap.NewSlice(int(totalSectors)),
		dirtySectors:  bitmap.NewSlice(int(totalSectors)),
		totalSectors:  totalSectors,
		data:          make([]byte, totalSectors*fat32.SectorSize),
	}
}

// TotalSectors returns the number of sectors the cache covers.
func (c *Cache) TotalSectors() uint64 {
	return c.totalSectors
}

func (c *Cache) checkTransfer(lba uint64, bufLen int) error {
	if lba >= c.totalSectors {
		return fat32.ErrIOFailed.WithMessage(fmt.Sprintf(
			"invalid sector %d: not in range [0, %d)", lba, c.totalSectors))
	}
	if bufLen != fat32.SectorSize {
		return fat32.ErrInvalidArgument.WithMessage(fmt.Sprintf(
			"transfers must be exactly %d bytes, got %d", fat32.SectorSize, bufLen))
	}
	return nil
}

func (c *Cache) sectorData(lba uint64) []byte {
	return c.data[lba*fat32.SectorSize : (lba+1)*fat32.SectorSize]
}

// ReadSector implements [fat32.SectorDevice]. The first read of a sector
// fetches it from the backing device; later reads are served from memory.
func (c *Cache) ReadSector(lba uint64, buf []byte) error {
	err := c.checkTransfer(lba, len(buf))
	if err != nil {
		return err
	}

	if !c.loadedSectors.Get(int(lba)) {
		err = c.backing.ReadSector(lba, c.sectorData(lba))
		if err != nil {
			return err
		}
		c.loadedSectors.Set(int(lba), true)
	}

	copy(buf, c.sectorData(lba))
	return nil
}

// WriteSector implements [fat32.SectorDevice]. The write stays in memory
// until the next Flush.
func (c *Cache) WriteSector(lba uint64, data []byte) error {
	err := c.checkTransfer(lba, len(data))
	if err != nil {
		return err
	}

	copy(c.sectorData(lba), data)
	c.loadedSectors.Set(int(lba), true)
	c.dirtySectors.Set(int(lba), true)
	return nil
}

// Flush writes every dirty sector back to the backing device. It keeps going
// after individual failures and returns all of them combined, so one bad
// sector doesn't keep the rest of the data from being published.
func (c *Cache) Flush() error {
	var combined *multierror.Error

	for lba := uint64(0); lba < c.totalSectors; lba++ {
		if !c.dirtySectors.Get(int(lba)) {
			continue
		}
		err := c.backing.WriteSector(lba, c.sectorData(lba))
		if err != nil {
			combined = multierror.Append(combined, fmt.Errorf(
				"flushing sector %d: %w", lba, err))
			continue
		}
		c.dirtySectors.Set(int(lba), false)
	}

	return combined.ErrorOrNil()
}
