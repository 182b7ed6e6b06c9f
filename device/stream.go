// Package device provides ready-made implementations of the sector device
// contract the fat32 driver consumes: a bounds-checked adapter over any
// io.ReadWriteSeeker (disk image files, in-memory buffers) and a write-back
// sector cache for tooling that batches its writes.
package device

import (
	"fmt"
	"io"

	"github.com/dargueta/fat32"
)

// Stream adapts a seekable stream into a [fat32.SectorDevice]. It enforces
// whole-sector transfers within the declared number of sectors.
//
// The exposed fields are informational and must not be changed after
// construction.
type Stream struct {
	// TotalSectors is the number of sectors the device exposes.
	TotalSectors uint64
	// StartOffset is a byte offset from the beginning of the stream that is
	// treated as LBA 0. Useful for volumes living behind an MBR or other
	// data on the same image.
	StartOffset int64
	stream      io.ReadWriteSeeker
}

// NewStream returns a sector device over the first totalSectors sectors of
// stream.
func NewStream(stream io.ReadWriteSeeker, totalSectors uint64) *Stream {
	return NewStreamAt(stream, totalSectors, 0)
}

// NewStreamAt is like [NewStream] but treats startOffset as the position of
// LBA 0.
func NewStreamAt(stream io.ReadWriteSeeker, totalSectors uint64, startOffset int64) *Stream {
	return &Stream{
		TotalSectors: totalSectors,
		StartOffset:  startOffset,
		stream:       stream,
	}
}

func (d *Stream) checkTransfer(lba uint64, bufLen int) error {
	if lba >= d.TotalSectors {
		return fat32.ErrIOFailed.WithMessage(fmt.Sprintf(
			"invalid sector %d: not in range [0, %d)", lba, d.TotalSectors))
	}
	if bufLen != fat32.SectorSize {
		return fat32.ErrInvalidArgument.WithMessage(fmt.Sprintf(
			"transfers must be exactly %d bytes, got %d", fat32.SectorSize, bufLen))
	}
	return nil
}

func (d *Stream) seekToSector(lba uint64) error {
	offset := d.StartOffset + int64(lba)*fat32.SectorSize
	_, err := d.stream.Seek(offset, io.SeekStart)
	return err
}

// ReadSector implements [fat32.SectorDevice].
func (d *Stream) ReadSector(lba uint64, buf []byte) error {
	err := d.checkTransfer(lba, len(buf))
	if err != nil {
		return err
	}

	err = d.seekToSector(lba)
	if err != nil {
		return fat32.ErrIOFailed.Wrap(err)
	}

	_, err = io.ReadFull(d.stream, buf)
	if err != nil {
		return fat32.ErrIOFailed.Wrap(err)
	}
	return nil
}

// WriteSector implements [fat32.SectorDevice].
func (d *Stream) WriteSector(lba uint64, data []byte) error {
	err := d.checkTransfer(lba, len(data))
	if err != nil {
		return err
	}

	err = d.seekToSector(lba)
	if err != nil {
		return fat32.ErrIOFailed.Wrap(err)
	}

	n, err := d.stream.Write(data)
	if err != nil {
		return fat32.ErrIOFailed.Wrap(err)
	}
	if n < fat32.SectorSize {
		return fat32.ErrIOFailed.WithMessage(fmt.Sprintf(
			"short write to sector %d: %d of %d bytes", lba, n, fat32.SectorSize))
	}
	return nil
}
