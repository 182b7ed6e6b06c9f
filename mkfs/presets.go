package mkfs

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/gocarina/gocsv"
)

// Preset is a predefined volume layout. The table of presets is embedded as
// CSV so new layouts can be added without touching code.
type Preset struct {
	Slug              string `csv:"slug"`
	Description       string `csv:"description"`
	TotalSectors      uint32 `csv:"total_sectors"`
	SectorsPerCluster uint8  `csv:"sectors_per_cluster"`
	ReservedSectors   uint16 `csv:"reserved_sectors"`
	NumFATs           uint8  `csv:"num_fats"`
	FATSize           uint32 `csv:"fat_sectors"`
}

// Params converts the preset into formatting parameters.
func (p Preset) Params() Params {
	return Params{
		TotalSectors:      p.TotalSectors,
		SectorsPerCluster: p.SectorsPerCluster,
		ReservedSectors:   p.ReservedSectors,
		NumFATs:           p.NumFATs,
		FATSize:           p.FATSize,
	}
}

//go:embed volume-presets.csv
var volumePresetsRawCSV string
var volumePresets map[string]Preset

// GetPreset returns the predefined volume layout with the given slug.
func GetPreset(slug string) (Preset, error) {
	preset, ok := volumePresets[slug]
	if ok {
		return preset, nil
	}
	return Preset{}, fmt.Errorf("no predefined volume layout exists with slug %q", slug)
}

// PresetSlugs returns the slugs of all predefined layouts, sorted.
func PresetSlugs() []string {
	slugs := make([]string, 0, len(volumePresets))
	for slug := range volumePresets {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

func init() {
	var rows []Preset
	err := gocsv.UnmarshalString(volumePresetsRawCSV, &rows)
	if err != nil {
		panic(fmt.Errorf("failed to decode volume preset table: %w", err))
	}

	volumePresets = make(map[string]Preset, len(rows))
	for i, row := range rows {
		_, exists := volumePresets[row.Slug]
		if exists {
			panic(fmt.Errorf(
				"duplicate definition for volume layout %q found on row %d",
				row.Slug, i+1))
		}
		volumePresets[row.Slug] = row
	}
}
