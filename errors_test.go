package fat32_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dargueta/fat32"
)

func TestDriverErrorWithMessage(t *testing.T) {
	newErr := fat32.ErrInvalidBootSector.WithMessage("asdfqwerty")
	assert.Equal(
		t, "Invalid boot sector: asdfqwerty", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, fat32.ErrInvalidBootSector)
}

func TestDriverErrorWrap(t *testing.T) {
	originalErr := errors.New("original error")
	newErr := fat32.ErrIOFailed.Wrap(originalErr)
	expectedMessage := "Input/output error: original error"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, fat32.ErrIOFailed, "driver error not set as parent")
}

// The taxonomy must keep its kinds distinct; several of them describe
// superficially similar failures.
func TestDriverErrorKindsAreDistinct(t *testing.T) {
	derived := fat32.ErrNotFAT32.WithMessage("16-bit FAT size is 9")
	assert.ErrorIs(t, derived, fat32.ErrNotFAT32)
	assert.NotErrorIs(t, derived, fat32.ErrInvalidBootSector)
	assert.NotErrorIs(t, fat32.ErrNoSpaceOnDevice, fat32.ErrDirectoryFull)
}
