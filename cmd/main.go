package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/fat32"
	"github.com/dargueta/fat32/device"
	"github.com/dargueta/fat32/mkfs"
)

func main() {
	cli := cli.App{
		Usage: "Inspect and modify FAT32 disk images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create or wipe an image using a predefined volume layout",
				Action:    formatImage,
				ArgsUsage: "IMAGE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "preset",
						Value: "floppy",
						Usage: fmt.Sprintf("volume layout, one of %v", mkfs.PresetSlugs()),
					},
				},
			},
			{
				Name:      "info",
				Usage:     "Print the volume geometry of an image",
				Action:    showInfo,
				ArgsUsage: "IMAGE",
			},
			{
				Name:      "ls",
				Usage:     "List the root directory of an image",
				Action:    listRoot,
				ArgsUsage: "IMAGE",
			},
			{
				Name:      "cat",
				Usage:     "Write the contents of a file in the image to stdout",
				Action:    catFile,
				ArgsUsage: "IMAGE NAME",
			},
			{
				Name:      "put",
				Usage:     "Copy a local file into the image under an 8.3 name",
				Action:    putFile,
				ArgsUsage: "IMAGE SOURCE NAME",
			},
		},
	}

	err := cli.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

// openImage maps an existing image file into a sector device.
func openImage(path string, writable bool) (*os.File, *device.Stream, error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}
	file, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	if info.Size()%fat32.SectorSize != 0 {
		file.Close()
		return nil, nil, fmt.Errorf(
			"image size %d is not a multiple of %d", info.Size(), fat32.SectorSize)
	}

	return file, device.NewStream(file, uint64(info.Size())/fat32.SectorSize), nil
}

func formatImage(context *cli.Context) error {
	if context.NArg() != 1 {
		return fmt.Errorf("expected exactly one image path")
	}

	preset, err := mkfs.GetPreset(context.String("preset"))
	if err != nil {
		return err
	}

	file, err := os.OpenFile(context.Args().Get(0), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	err = file.Truncate(int64(preset.TotalSectors) * fat32.SectorSize)
	if err != nil {
		return err
	}

	// Formatting touches most metadata sectors more than once, so batch the
	// writes through a cache and publish them in one pass.
	cache := device.NewCache(
		device.NewStream(file, uint64(preset.TotalSectors)),
		uint64(preset.TotalSectors))
	err = mkfs.Format(cache, preset.Params())
	if err != nil {
		return err
	}
	return cache.Flush()
}

func showInfo(context *cli.Context) error {
	if context.NArg() != 1 {
		return fmt.Errorf("expected exactly one image path")
	}

	file, dev, err := openImage(context.Args().Get(0), false)
	if err != nil {
		return err
	}
	defer file.Close()

	fs, err := fat32.Mount(dev)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	geo := fs.Geometry()
	fmt.Printf("bytes per sector:    %d\n", geo.BytesPerSector)
	fmt.Printf("sectors per cluster: %d\n", geo.SectorsPerCluster)
	fmt.Printf("reserved sectors:    %d\n", geo.ReservedSectors)
	fmt.Printf("FAT copies:          %d\n", geo.NumFATs)
	fmt.Printf("FAT size (sectors):  %d\n", geo.FATSize)
	fmt.Printf("total sectors:       %d\n", geo.TotalSectors)
	fmt.Printf("root cluster:        %d\n", geo.RootCluster)
	fmt.Printf("FSInfo sector:       %d\n", geo.FSInfoSector)
	return nil
}

func listRoot(context *cli.Context) error {
	if context.NArg() != 1 {
		return fmt.Errorf("expected exactly one image path")
	}

	file, dev, err := openImage(context.Args().Get(0), false)
	if err != nil {
		return err
	}
	defer file.Close()

	fs, err := fat32.Mount(dev)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	entries, err := fs.ListRoot()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		kind := " "
		if entry.IsDirectory() {
			kind = "d"
		}
		fmt.Printf("%s %10d  cluster %-8d %s\n",
			kind, entry.Size, entry.FirstCluster, entry.Name)
	}
	return nil
}

func catFile(context *cli.Context) error {
	if context.NArg() != 2 {
		return fmt.Errorf("expected an image path and a file name")
	}

	file, dev, err := openImage(context.Args().Get(0), false)
	if err != nil {
		return err
	}
	defer file.Close()

	fs, err := fat32.Mount(dev)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	data, err := fs.ReadFile(context.Args().Get(1))
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func putFile(context *cli.Context) error {
	if context.NArg() != 3 {
		return fmt.Errorf("expected an image path, a source file and a destination name")
	}

	content, err := os.ReadFile(context.Args().Get(1))
	if err != nil {
		return err
	}

	file, dev, err := openImage(context.Args().Get(0), true)
	if err != nil {
		return err
	}
	defer file.Close()

	fs, err := fat32.Mount(dev)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	return fs.WriteFile(context.Args().Get(2), content)
}
