package device_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/fat32"
	"github.com/dargueta/fat32/device"
	"github.com/dargueta/fat32/mkfs"
)

// countingDevice wraps a sector device and counts the transfers that reach
// it, so tests can tell cache hits from misses.
type countingDevice struct {
	backing fat32.SectorDevice
	reads   int
	writes  int
}

func (d *countingDevice) ReadSector(lba uint64, buf []byte) error {
	d.reads++
	return d.backing.ReadSector(lba, buf)
}

func (d *countingDevice) WriteSector(lba uint64, data []byte) error {
	d.writes++
	return d.backing.WriteSector(lba, data)
}

func TestCache__ReadThrough(t *testing.T) {
	backing, stream := newBackedStream(8)
	copy(backing[2*fat32.SectorSize:], bytes.Repeat([]byte{0x42}, fat32.SectorSize))

	counted := &countingDevice{backing: stream}
	cache := device.NewCache(counted, 8)

	buffer := make([]byte, fat32.SectorSize)
	require.NoError(t, cache.ReadSector(2, buffer))
	assert.Equal(t, bytes.Repeat([]byte{0x42}, fat32.SectorSize), buffer)
	assert.Equal(t, 1, counted.reads)

	// A second read of the same sector is served from memory.
	require.NoError(t, cache.ReadSector(2, buffer))
	assert.Equal(t, 1, counted.reads, "second read must be a cache hit")
}

func TestCache__WriteBack(t *testing.T) {
	backing, stream := newBackedStream(8)
	counted := &countingDevice{backing: stream}
	cache := device.NewCache(counted, 8)

	data := bytes.Repeat([]byte{0x99}, fat32.SectorSize)
	require.NoError(t, cache.WriteSector(5, data))

	assert.Zero(t, counted.writes, "writes must stay in memory until Flush")
	assert.Equal(t, make([]byte, fat32.SectorSize),
		backing[5*fat32.SectorSize:6*fat32.SectorSize])

	// The cache still serves its own unpublished write.
	readBack := make([]byte, fat32.SectorSize)
	require.NoError(t, cache.ReadSector(5, readBack))
	assert.Equal(t, data, readBack)

	require.NoError(t, cache.Flush())
	assert.Equal(t, 1, counted.writes)
	assert.Equal(t, data, backing[5*fat32.SectorSize:6*fat32.SectorSize])

	// Nothing is dirty anymore, so another flush publishes nothing.
	require.NoError(t, cache.Flush())
	assert.Equal(t, 1, counted.writes)
}

func TestCache__OutOfRange(t *testing.T) {
	_, stream := newBackedStream(8)
	cache := device.NewCache(stream, 8)

	err := cache.ReadSector(8, make([]byte, fat32.SectorSize))
	assert.ErrorIs(t, err, fat32.ErrIOFailed)

	err = cache.WriteSector(8, make([]byte, fat32.SectorSize))
	assert.ErrorIs(t, err, fat32.ErrIOFailed)
}

// Formatting a volume through the cache and flushing must leave the backing
// device mountable on its own.
func TestCache__BacksAFormattedVolume(t *testing.T) {
	params, err := mkfs.GetPreset("tiny")
	require.NoError(t, err)

	_, stream := newBackedStream(int(params.TotalSectors))
	cache := device.NewCache(stream, uint64(params.TotalSectors))

	require.NoError(t, mkfs.Format(cache, params.Params()))
	require.NoError(t, cache.Flush())

	fs, err := fat32.Mount(stream)
	require.NoError(t, err)

	entries, err := fs.ListRoot()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
