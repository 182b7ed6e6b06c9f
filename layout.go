package fat32

// FirstDataCluster is the lowest valid cluster number. FAT entries 0 and 1
// are reserved; a cluster number below 2 never addresses data.
const FirstDataCluster = 2

// Address translation. These are pure functions of the geometry and do not
// re-validate their inputs: callers must only pass cluster numbers >= 2.

// FATStartLBA returns the first sector of the FAT region.
func (g Geometry) FATStartLBA() uint64 {
	return uint64(g.ReservedSectors)
}

// DataStartLBA returns the first sector of the data region, which begins
// immediately after the last FAT copy.
func (g Geometry) DataStartLBA() uint64 {
	return g.FATStartLBA() + uint64(g.NumFATs)*uint64(g.FATSize)
}

// FirstSectorOfCluster returns the LBA of the first sector of the given
// cluster. cluster must be >= FirstDataCluster.
func (g Geometry) FirstSectorOfCluster(cluster uint32) uint64 {
	return g.DataStartLBA() + uint64(cluster-FirstDataCluster)*uint64(g.SectorsPerCluster)
}

// BytesPerCluster returns the size of one cluster in bytes.
func (g Geometry) BytesPerCluster() uint {
	return uint(g.SectorsPerCluster) * uint(g.BytesPerSector)
}
