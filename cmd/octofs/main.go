// Command octofs manages octopos file system partitions from the host: it
// can format an image, list and check its contents, and copy file data in
// and out. The partition lives either in a single disk image file or in a
// directory of per-block files (the layout the reference block device
// uses).
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"

	octofs "github.com/trusslab/octopos-filesystem"
	"github.com/trusslab/octopos-filesystem/blockdev"
)

func main() {
	app := cli.App{
		Usage: "Manage octopos file system partitions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "image",
				Usage: "path to a disk image file holding the partition",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "path to a directory of per-block files (block<N>.txt)",
			},
			&cli.UintFlag{
				Name:  "blocks",
				Usage: "partition size in 512-byte blocks",
				Value: 200000,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "format",
				Usage:  "Write a fresh, empty directory page",
				Action: formatPartition,
			},
			{
				Name:   "info",
				Usage:  "Show partition geometry and usage",
				Action: showInfo,
			},
			{
				Name:  "ls",
				Usage: "List the files on the partition",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "emit the listing as CSV",
					},
				},
				Action: listFiles,
			},
			{
				Name:      "cat",
				Usage:     "Copy one file's contents to stdout",
				ArgsUsage: "NAME",
				Action:    catFile,
			},
			{
				Name:      "put",
				Usage:     "Write stdin into a file from offset 0, creating it if needed (no truncation)",
				ArgsUsage: "NAME",
				Action:    putFile,
			},
			{
				Name:   "check",
				Usage:  "Verify the partition's structural invariants",
				Action: checkPartition,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

// openDevice builds the block device the flags describe. The caller must
// invoke the returned cleanup function when done.
func openDevice(ctx *cli.Context) (blockdev.Device, func(), error) {
	totalBlocks := uint32(ctx.Uint("blocks"))

	if storeDir := ctx.String("store"); storeDir != "" {
		store, err := blockdev.NewFileStore(storeDir, totalBlocks)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}

	imagePath := ctx.String("image")
	if imagePath == "" {
		return nil, nil, fmt.Errorf("either --image or --store is required")
	}

	file, err := os.OpenFile(imagePath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, err
	}

	// The stream device needs the full partition to be addressable.
	imageSize := int64(totalBlocks) * blockdev.BlockSize
	if stat, err := file.Stat(); err != nil {
		file.Close()
		return nil, nil, err
	} else if stat.Size() < imageSize {
		if err := file.Truncate(imageSize); err != nil {
			file.Close()
			return nil, nil, err
		}
	}

	return blockdev.NewStreamDevice(file, totalBlocks), func() { file.Close() }, nil
}

func mount(ctx *cli.Context) (*octofs.FileSystem, func(), error) {
	dev, cleanup, err := openDevice(ctx)
	if err != nil {
		return nil, nil, err
	}

	fs, err := octofs.Init(dev, uint32(ctx.Uint("blocks")))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return fs, cleanup, nil
}

func formatPartition(ctx *cli.Context) error {
	dev, cleanup, err := openDevice(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// Blanking the signature makes Init treat the partition as fresh and
	// write out an empty directory page.
	zero := make([]byte, octofs.DirDataSize)
	if dev.WriteBlocks(zero, 0, octofs.DirBlocks) != octofs.DirDataSize {
		return fmt.Errorf("failed to clear the directory blocks")
	}

	fs, err := octofs.Init(dev, uint32(ctx.Uint("blocks")))
	if err != nil {
		return err
	}
	return fs.Close()
}

func showInfo(ctx *cli.Context) error {
	fs, cleanup, err := mount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	defer fs.Close()

	files := fs.Files()
	usedBlocks := uint64(octofs.DirBlocks)
	for _, entry := range files {
		usedBlocks += uint64(entry.NumBlocks())
	}

	fmt.Printf("partition:    %d blocks of %d bytes\n", fs.TotalBlocks(), octofs.BlockSize)
	fmt.Printf("files:        %d\n", len(files))
	fmt.Printf("blocks used:  %d (including %d directory blocks)\n", usedBlocks, octofs.DirBlocks)
	return nil
}

// listingRow is one line of `octofs ls`, shaped for the CSV export.
type listingRow struct {
	Name       string `csv:"name"`
	Size       uint32 `csv:"size"`
	StartBlock uint32 `csv:"start_block"`
	NumBlocks  uint32 `csv:"num_blocks"`
}

func listFiles(ctx *cli.Context) error {
	fs, cleanup, err := mount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	defer fs.Close()

	rows := []listingRow{}
	for _, entry := range fs.Files() {
		rows = append(rows, listingRow{
			Name:       entry.Name(),
			Size:       entry.Size(),
			StartBlock: uint32(entry.StartBlock()),
			NumBlocks:  entry.NumBlocks(),
		})
	}

	if ctx.Bool("csv") {
		return gocsv.Marshal(&rows, os.Stdout)
	}

	for _, row := range rows {
		fmt.Printf("%-32s %10d bytes  blocks [%d, %d)\n",
			row.Name, row.Size, row.StartBlock, row.StartBlock+row.NumBlocks)
	}
	return nil
}

func catFile(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" {
		return fmt.Errorf("a file name is required")
	}

	fs, cleanup, err := mount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	defer fs.Close()

	var size uint32
	for _, entry := range fs.Files() {
		if entry.Name() == name {
			size = entry.Size()
		}
	}

	fd := fs.Open(name, octofs.ModeOpen)
	if fd == 0 {
		return fmt.Errorf("cannot open %q", name)
	}
	defer fs.CloseFile(fd)

	contents := make([]byte, size)
	if n := fs.Read(fd, contents, 0); uint32(n) != size {
		return fmt.Errorf("short read of %q: %d of %d bytes", name, n, size)
	}

	_, err = os.Stdout.Write(contents)
	return err
}

func putFile(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" {
		return fmt.Errorf("a file name is required")
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}

	fs, cleanup, err := mount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	defer fs.Close()

	fd := fs.Open(name, octofs.ModeOpenOrCreate)
	if fd == 0 {
		return fmt.Errorf("cannot open or create %q", name)
	}
	defer fs.CloseFile(fd)

	if n := fs.Write(fd, data, 0); n != len(data) {
		return fmt.Errorf("short write of %q: %d of %d bytes", name, n, len(data))
	}
	return nil
}

func checkPartition(ctx *cli.Context) error {
	fs, cleanup, err := mount(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	defer fs.Close()

	if err := fs.Check(); err != nil {
		return err
	}
	fmt.Println("partition is consistent")
	return nil
}
