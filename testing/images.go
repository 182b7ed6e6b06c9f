// Package testing provides helpers for building in-memory FAT32 volumes in
// tests. Import it under a name like fat32test.
package testing

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/dargueta/fat32"
	"github.com/dargueta/fat32/device"
	"github.com/dargueta/fat32/mkfs"
)

// NewBlankDevice returns an in-memory sector device with totalSectors zeroed
// sectors. Writes stay in the backing buffer; the buffer's size is fixed, so
// writing past the last sector fails like it would on real hardware.
func NewBlankDevice(t *testing.T, totalSectors uint64) *device.Stream {
	buffer := make([]byte, totalSectors*fat32.SectorSize)
	return device.NewStream(bytesextra.NewReadWriteSeeker(buffer), totalSectors)
}

// NewFormattedDevice returns an in-memory device holding a freshly formatted
// FAT32 volume described by params.
func NewFormattedDevice(t *testing.T, params mkfs.Params) *device.Stream {
	dev := NewBlankDevice(t, uint64(params.TotalSectors))
	require.NoError(t, mkfs.Format(dev, params), "formatting in-memory volume failed")
	return dev
}

// PresetParams looks up a mkfs preset and fails the test if it doesn't exist.
func PresetParams(t *testing.T, slug string) mkfs.Params {
	preset, err := mkfs.GetPreset(slug)
	require.NoError(t, err, "unknown volume preset")
	return preset.Params()
}

// MountFormatted formats an in-memory volume and mounts it.
func MountFormatted(t *testing.T, params mkfs.Params) *fat32.FileSystem {
	dev := NewFormattedDevice(t, params)
	fs, err := fat32.Mount(dev)
	require.NoError(t, err, "mounting freshly formatted volume failed")
	return fs
}
