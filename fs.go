package fat32

import (
	"fmt"
)

// FileSystem is a handle to one mounted FAT32 volume. It binds the device
// and the parsed geometry for the duration of the mount and owns the device
// exclusively until [FileSystem.Unmount] hands it back.
//
// All operations are synchronous and single-threaded: every device access is
// a direct blocking call, there is no background work, no queuing and no
// locking. Two handles over the same device are undefined behavior.
type FileSystem struct {
	dev SectorDevice
	geo Geometry
	fat FAT
}

// Mount reads sector 0 of the device, validates it as a FAT32 boot sector
// and returns a ready filesystem handle. Parser failures propagate
// unchanged; there is no retry.
func Mount(dev SectorDevice) (*FileSystem, error) {
	boot := make([]byte, SectorSize)
	err := dev.ReadSector(0, boot)
	if err != nil {
		return nil, ErrIOFailed.Wrap(err)
	}

	geo, err := ParseBootSector(boot)
	if err != nil {
		return nil, err
	}

	return &FileSystem{
		dev: dev,
		geo: geo,
		fat: NewFAT(dev, geo),
	}, nil
}

// Unmount releases the handle and returns ownership of the underlying
// device to the caller. The handle must not be used afterwards; operations
// on an unmounted handle fail with [ErrNotMounted]. There is nothing to
// flush: every write has already been published to the device.
func (fs *FileSystem) Unmount() SectorDevice {
	dev := fs.dev
	fs.dev = nil
	fs.fat = FAT{}
	return dev
}

// Geometry returns the volume geometry parsed at mount time.
func (fs *FileSystem) Geometry() Geometry {
	return fs.geo
}

// FAT returns the accessor for the volume's first FAT copy. It shares the
// mounted device, so it is mainly useful for inspection tools and tests.
func (fs *FileSystem) FAT() FAT {
	return fs.fat
}

func (fs *FileSystem) mounted() error {
	if fs.dev == nil {
		return ErrNotMounted
	}
	return nil
}

// ListRoot returns all regular 8.3 entries of the root directory in on-disk
// order. Tombstones and long-name records are skipped; the scan stops at the
// first end-of-directory record. A root chain whose successor is neither a
// valid cluster nor an end-of-chain marker fails with
// [ErrFileSystemCorrupted].
func (fs *FileSystem) ListRoot() ([]Dirent, error) {
	err := fs.mounted()
	if err != nil {
		return nil, err
	}

	var entries []Dirent
	err = fs.walkRootDirectory(func(record []byte, lba uint64) (bool, error) {
		kind, entry := DecodeDirent(record)
		switch kind {
		case DirentEndOfDirectory:
			return true, nil
		case DirentTombstone, DirentLongNamePart:
			return false, nil
		}
		entries = append(entries, entry)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadFile returns the full contents of the root directory file with the
// given name. The name is normalized to 8.3 form first; the first entry with
// a matching 11-byte name wins, and a missing name fails with [ErrNotFound].
//
// The file's cluster chain must provide at least as many bytes as its
// recorded size. Hitting an end-of-chain marker with bytes still outstanding
// means the size and the chain disagree, which fails with
// [ErrFileSystemCorrupted].
func (fs *FileSystem) ReadFile(name string) ([]byte, error) {
	err := fs.mounted()
	if err != nil {
		return nil, err
	}

	target, err := NewShortName(name)
	if err != nil {
		return nil, err
	}

	entries, err := fs.ListRoot()
	if err != nil {
		return nil, err
	}

	var entry Dirent
	found := false
	for _, e := range entries {
		if e.Name == target {
			entry = e
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNotFound.WithMessage(target.String())
	}
	if entry.FirstCluster < FirstDataCluster {
		return nil, ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf("entry %s has first cluster %d", target, entry.FirstCluster))
	}

	data := make([]byte, 0, entry.Size)
	remaining := uint(entry.Size)
	cluster := entry.FirstCluster
	buffer := make([]byte, SectorSize)

	for remaining > 0 {
		base := fs.geo.FirstSectorOfCluster(cluster)
		for s := uint64(0); s < uint64(fs.geo.SectorsPerCluster) && remaining > 0; s++ {
			err = fs.dev.ReadSector(base+s, buffer)
			if err != nil {
				return nil, ErrIOFailed.Wrap(err)
			}
			take := remaining
			if take > SectorSize {
				take = SectorSize
			}
			data = append(data, buffer[:take]...)
			remaining -= take
		}
		if remaining == 0 {
			break
		}

		next, err := fs.fat.Entry(cluster)
		if err != nil {
			return nil, err
		}
		if IsEndOfChain(next) {
			return nil, ErrFileSystemCorrupted.WithMessage(fmt.Sprintf(
				"chain of %s ended with %d bytes still unread", target, remaining))
		}
		if next < FirstDataCluster {
			return nil, ErrFileSystemCorrupted.WithMessage(
				fmt.Sprintf("cluster %d links to invalid cluster %d", cluster, next))
		}
		cluster = next
	}

	return data, nil
}

// WriteFile creates or overwrites the root directory file with the given
// name. Content must be at least one byte; a write that needs zero clusters
// fails with [ErrInvalidName].
//
// The sequence is allocate, link, write data, publish the directory entry.
// There is no atomic commit and no rollback: if a later step fails, clusters
// reserved by earlier steps stay allocated and unreferenced. That is a leak,
// not a corruption. Overwriting an existing name likewise orphans the old
// chain rather than freeing it; both are documented limitations of this
// driver.
func (fs *FileSystem) WriteFile(name string, content []byte) error {
	err := fs.mounted()
	if err != nil {
		return err
	}

	short, err := NewShortName(name)
	if err != nil {
		return err
	}

	bytesPerCluster := fs.geo.BytesPerCluster()
	clustersNeeded := (uint(len(content)) + bytesPerCluster - 1) / bytesPerCluster
	if clustersNeeded == 0 {
		return ErrInvalidName.WithMessage("refusing to write zero-length content")
	}

	// Allocate the chain one cluster at a time. Each cluster is marked as
	// end-of-chain the moment it is found so a later scan in the same
	// operation cannot claim it again.
	chain := make([]uint32, 0, clustersNeeded)
	searchFrom := uint32(FirstDataCluster)
	for i := uint(0); i < clustersNeeded; i++ {
		cluster, err := fs.fat.FindFree(searchFrom)
		if err != nil {
			return err
		}
		err = fs.fat.SetEntry(cluster, EndOfChain)
		if err != nil {
			return err
		}
		chain = append(chain, cluster)
		searchFrom = cluster + 1
	}

	// Link the clusters in order; the last one keeps its end-of-chain mark.
	for i := 0; i+1 < len(chain); i++ {
		err = fs.fat.SetEntry(chain[i], chain[i+1])
		if err != nil {
			return err
		}
	}

	// Write the content sequentially, zero-padding every sector of the last
	// cluster past the end of the data.
	offset := 0
	sector := make([]byte, SectorSize)
	for _, cluster := range chain {
		base := fs.geo.FirstSectorOfCluster(cluster)
		for s := uint64(0); s < uint64(fs.geo.SectorsPerCluster); s++ {
			for i := range sector {
				sector[i] = 0
			}
			offset += copy(sector, content[offset:])

			err = fs.dev.WriteSector(base+s, sector)
			if err != nil {
				return ErrIOFailed.Wrap(err)
			}
		}
	}

	record := NewFileDirent(short, chain[0], uint32(len(content))).Encode()
	return fs.publishRootDirent(record)
}

// rootSlotVisitor is called for every 32-byte slot of the root directory in
// on-disk order. lba is the sector holding the slot. Returning true stops
// the walk.
type rootSlotVisitor func(record []byte, lba uint64) (stop bool, err error)

// walkRootDirectory follows the root directory's cluster chain and hands
// every directory slot to visit. The chain itself is validated: a successor
// below 2 that is not an end-of-chain marker is corruption.
func (fs *FileSystem) walkRootDirectory(visit rootSlotVisitor) error {
	cluster := fs.geo.RootCluster
	buffer := make([]byte, SectorSize)

	for {
		base := fs.geo.FirstSectorOfCluster(cluster)
		for s := uint64(0); s < uint64(fs.geo.SectorsPerCluster); s++ {
			err := fs.dev.ReadSector(base+s, buffer)
			if err != nil {
				return ErrIOFailed.Wrap(err)
			}
			for i := 0; i < DirentsPerSector; i++ {
				stop, err := visit(buffer[i*DirentSize:(i+1)*DirentSize], base+s)
				if err != nil {
					return err
				}
				if stop {
					return nil
				}
			}
		}

		next, err := fs.fat.Entry(cluster)
		if err != nil {
			return err
		}
		if IsEndOfChain(next) {
			return nil
		}
		if next < FirstDataCluster {
			return ErrFileSystemCorrupted.WithMessage(fmt.Sprintf(
				"root directory cluster %d links to invalid cluster %d", cluster, next))
		}
		cluster = next
	}
}

// publishRootDirent writes record into the first reusable root directory
// slot: either a tombstone or the end-of-directory record. If the walk runs
// out of chain without finding one, the directory is full.
func (fs *FileSystem) publishRootDirent(record []byte) error {
	published := false
	err := fs.walkRootDirectory(func(slot []byte, lba uint64) (bool, error) {
		if slot[0] != markerEndOfDirectory && slot[0] != markerTombstone {
			return false, nil
		}

		// Read-modify-write of the whole sector holding the slot.
		buffer := make([]byte, SectorSize)
		err := fs.dev.ReadSector(lba, buffer)
		if err != nil {
			return false, ErrIOFailed.Wrap(err)
		}
		for i := 0; i < DirentsPerSector; i++ {
			first := buffer[i*DirentSize]
			if first == markerEndOfDirectory || first == markerTombstone {
				copy(buffer[i*DirentSize:(i+1)*DirentSize], record)
				err = fs.dev.WriteSector(lba, buffer)
				if err != nil {
					return false, ErrIOFailed.Wrap(err)
				}
				published = true
				return true, nil
			}
		}
		// The slot looked free from the walk's buffer but the re-read
		// disagreed. With a single handle owning the device this cannot
		// happen.
		return false, ErrFileSystemCorrupted.WithMessage(
			fmt.Sprintf("free directory slot vanished from sector %d", lba))
	})
	if err != nil {
		return err
	}
	if !published {
		return ErrDirectoryFull
	}
	return nil
}
