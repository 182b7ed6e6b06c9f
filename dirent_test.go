package fat32_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/fat32"
)

func TestNewShortName__Normalization(t *testing.T) {
	lower, err := fat32.NewShortName("a.txt")
	require.NoError(t, err)
	upper, err := fat32.NewShortName("A.TXT")
	require.NoError(t, err)

	assert.Equal(t, upper, lower, "case folding must map both spellings to one form")
	assert.Equal(t, "A       TXT", string(lower[:]))
}

func TestNewShortName__NoExtension(t *testing.T) {
	name, err := fat32.NewShortName("README")
	require.NoError(t, err)
	assert.Equal(t, "README     ", string(name[:]))
	assert.Equal(t, "README", name.String())
}

func TestNewShortName__Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"base longer than 8", "toolongname.txt"},
		{"extension longer than 3", "X.ABCD"},
		{"empty base", ".txt"},
		{"empty string", ""},
		{"two separators", "A.B.C"},
		{"disallowed character", "HI!.TXT"},
		{"space in base", "A B.TXT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fat32.NewShortName(tt.input)
			assert.ErrorIs(t, err, fat32.ErrInvalidName)
		})
	}
}

func TestShortName__String(t *testing.T) {
	name, err := fat32.NewShortName("hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "HELLO.TXT", name.String())
}

func TestDecodeDirent__Markers(t *testing.T) {
	record := make([]byte, fat32.DirentSize)

	kind, _ := fat32.DecodeDirent(record)
	assert.Equal(t, fat32.DirentEndOfDirectory, kind, "0x00 must end the directory")

	record[0] = 0xE5
	kind, _ = fat32.DecodeDirent(record)
	assert.Equal(t, fat32.DirentTombstone, kind, "0xE5 must be a reusable slot")

	record[0] = 'A'
	record[11] = fat32.AttrLongName
	kind, _ = fat32.DecodeDirent(record)
	assert.Equal(t, fat32.DirentLongNamePart, kind, "attribute 0x0F must be skipped")
}

func TestDecodeDirent__ShortEntry(t *testing.T) {
	record := make([]byte, fat32.DirentSize)
	copy(record, "HELLO   TXT")
	record[11] = fat32.AttrArchived
	binary.LittleEndian.PutUint16(record[20:], 0x0004) // first cluster, high half
	binary.LittleEndian.PutUint16(record[26:], 0x0203) // first cluster, low half
	binary.LittleEndian.PutUint32(record[28:], 1234)   // size

	kind, entry := fat32.DecodeDirent(record)
	require.Equal(t, fat32.DirentShort, kind)

	assert.Equal(t, "HELLO.TXT", entry.Name.String())
	assert.EqualValues(t, fat32.AttrArchived, entry.Attributes)
	assert.EqualValues(t, 0x00040203, entry.FirstCluster)
	assert.EqualValues(t, 1234, entry.Size)
	assert.False(t, entry.IsDirectory())
}

func TestDirentEncode__FieldOffsets(t *testing.T) {
	name, err := fat32.NewShortName("BIG.BIN")
	require.NoError(t, err)

	entry := fat32.NewFileDirent(name, 0x00070005, 99)
	record := entry.Encode()
	require.Len(t, record, fat32.DirentSize)

	assert.Equal(t, "BIG     BIN", string(record[:11]))
	assert.EqualValues(t, fat32.AttrArchived, record[11])
	assert.EqualValues(t, 0x0007, binary.LittleEndian.Uint16(record[20:]))
	assert.EqualValues(t, 0x0005, binary.LittleEndian.Uint16(record[26:]))
	assert.EqualValues(t, 99, binary.LittleEndian.Uint32(record[28:]))

	// Everything this driver doesn't use (timestamps, NT byte) stays zero.
	for _, offset := range []int{12, 13, 14, 15, 16, 17, 18, 19, 22, 23, 24, 25} {
		assert.Zero(t, record[offset], "offset %d must be zero", offset)
	}

	kind, decoded := fat32.DecodeDirent(record)
	assert.Equal(t, fat32.DirentShort, kind)
	assert.Equal(t, entry, decoded)
}
