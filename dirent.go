package fat32

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// DirentSize is the size of one directory entry record on disk.
const DirentSize = 32

// DirentsPerSector is the number of directory entry slots in one sector.
const DirentsPerSector = SectorSize / DirentSize

const (
	// AttrReadOnly marks a directory entry as read-only.
	AttrReadOnly = 0x01

	// AttrHidden marks a directory entry as "hidden", meaning it wouldn't
	// show up in normal directory listings.
	AttrHidden = 0x02

	// AttrSystem marks a directory entry as essential to the operating
	// system and must not be moved, e.g. during defragmentation.
	AttrSystem = 0x04

	// AttrVolumeLabel marks an entry as containing the volume label. It must
	// reside in the root directory and there must be at most one.
	AttrVolumeLabel = 0x08

	// AttrDirectory marks a directory entry as being a directory.
	AttrDirectory = 0x10

	// AttrArchived is set whenever an entry is created or modified; backup
	// tools use it to decide what needs archiving.
	AttrArchived = 0x20

	// AttrLongName is the attribute combination reserved for long-file-name
	// continuation records. This driver never reconstructs long names; such
	// records are recognized only so they can be skipped.
	AttrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeLabel
)

// Special values of the first name byte.
const (
	markerEndOfDirectory = 0x00
	markerTombstone      = 0xE5
)

// Field offsets within a 32-byte directory entry record.
const (
	direntAttrOffset        = 11
	direntClusterHighOffset = 20
	direntClusterLowOffset  = 26
	direntSizeOffset        = 28
)

// DirentKind classifies a 32-byte directory record.
type DirentKind uint8

const (
	// DirentShort is a regular 8.3 entry carrying a name, cluster and size.
	DirentShort DirentKind = iota

	// DirentEndOfDirectory is a record whose first byte is 0x00. It signals
	// the end of the directory; a scan stops here. Not an error.
	DirentEndOfDirectory

	// DirentTombstone is a deleted entry (first byte 0xE5). The slot can be
	// reused for a new entry.
	DirentTombstone

	// DirentLongNamePart is a long-file-name continuation record. Skipped.
	DirentLongNamePart
)

// Dirent is a decoded 8.3 directory entry.
type Dirent struct {
	// Name is the 11-byte fixed-width name exactly as stored on disk.
	Name ShortName
	// Attributes is the raw attribute byte; see the Attr* constants.
	Attributes byte
	// FirstCluster is the first cluster of the entry's data. Whenever
	// Size > 0 this must be >= 2.
	FirstCluster uint32
	// Size is the file size in bytes.
	Size uint32
}

// IsDirectory reports whether the entry describes a subdirectory.
func (d Dirent) IsDirectory() bool {
	return d.Attributes&AttrDirectory != 0
}

// NewFileDirent builds the entry for a regular file the way this driver
// writes them: archive attribute set, everything else (timestamps, NT
// flags) zero. Entries created here carry no timestamp metadata.
func NewFileDirent(name ShortName, firstCluster uint32, size uint32) Dirent {
	return Dirent{
		Name:         name,
		Attributes:   AttrArchived,
		FirstCluster: firstCluster,
		Size:         size,
	}
}

// DecodeDirent classifies a 32-byte directory record and, for regular short
// entries, decodes its fields. record must be exactly DirentSize bytes; the
// returned Dirent is the zero value for every kind except DirentShort.
func DecodeDirent(record []byte) (DirentKind, Dirent) {
	if record[0] == markerEndOfDirectory {
		return DirentEndOfDirectory, Dirent{}
	}
	if record[0] == markerTombstone {
		return DirentTombstone, Dirent{}
	}

	attributes := record[direntAttrOffset]
	if attributes&AttrLongName == AttrLongName {
		return DirentLongNamePart, Dirent{}
	}

	var name ShortName
	copy(name[:], record[:11])

	high := uint32(binary.LittleEndian.Uint16(record[direntClusterHighOffset:]))
	low := uint32(binary.LittleEndian.Uint16(record[direntClusterLowOffset:]))

	return DirentShort, Dirent{
		Name:         name,
		Attributes:   attributes,
		FirstCluster: high<<16 | low,
		Size:         binary.LittleEndian.Uint32(record[direntSizeOffset:]),
	}
}

// Encode serializes the entry into its 32-byte on-disk form. The first
// cluster is split across its two 16-bit halves; all bytes this driver does
// not use (timestamps and so on) are written as zero.
func (d Dirent) Encode() []byte {
	record := make([]byte, DirentSize)
	copy(record[:11], d.Name[:])
	record[direntAttrOffset] = d.Attributes

	binary.LittleEndian.PutUint16(record[direntClusterHighOffset:], uint16(d.FirstCluster>>16))
	binary.LittleEndian.PutUint16(record[direntClusterLowOffset:], uint16(d.FirstCluster))
	binary.LittleEndian.PutUint32(record[direntSizeOffset:], d.Size)
	return record
}

// ShortName is the 11-byte fixed-width 8.3 name form: an 8-byte base and a
// 3-byte extension, both space-padded, uppercase only.
type ShortName [11]byte

// NewShortName normalizes a human-readable name like "hello.txt" into its
// 11-byte form. The base may be at most 8 characters and the extension at
// most 3; the character set is restricted to A-Z, 0-9, '_' and '-', with
// lowercase input folded to uppercase. Anything else fails with
// [ErrInvalidName].
func NewShortName(name string) (ShortName, error) {
	var short ShortName
	for i := range short {
		short[i] = ' '
	}

	base, ext, _ := strings.Cut(name, ".")

	if len(base) == 0 || len(base) > 8 {
		return ShortName{}, ErrInvalidName.WithMessage(
			fmt.Sprintf("name base must be 1-8 characters: %q", base))
	}
	if len(ext) > 3 {
		return ShortName{}, ErrInvalidName.WithMessage(
			fmt.Sprintf("name extension can be at most 3 characters: %q", ext))
	}

	for i := 0; i < len(base); i++ {
		c, ok := normalizeNameByte(base[i])
		if !ok {
			return ShortName{}, ErrInvalidName.WithMessage(
				fmt.Sprintf("invalid character %q in name %q", base[i], name))
		}
		short[i] = c
	}
	for i := 0; i < len(ext); i++ {
		c, ok := normalizeNameByte(ext[i])
		if !ok {
			return ShortName{}, ErrInvalidName.WithMessage(
				fmt.Sprintf("invalid character %q in name %q", ext[i], name))
		}
		short[8+i] = c
	}

	return short, nil
}

// normalizeNameByte uppercases c and reports whether the result is in the
// allowed 8.3 character set.
func normalizeNameByte(c byte) (byte, bool) {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	switch {
	case c >= 'A' && c <= 'Z':
	case c >= '0' && c <= '9':
	case c == '_' || c == '-':
	default:
		return 0, false
	}
	return c, true
}

// String renders the name in its display form, e.g. "HELLO.TXT". An empty
// extension yields no dot.
func (n ShortName) String() string {
	base := strings.TrimRight(string(n[:8]), " ")
	ext := strings.TrimRight(string(n[8:]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}
