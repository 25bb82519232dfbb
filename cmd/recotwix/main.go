package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/aghaeifar/recotwix/pkg/config"
	"github.com/aghaeifar/recotwix/pkg/protocol"
	"github.com/aghaeifar/recotwix/pkg/visualization"
	"github.com/aghaeifar/recotwix/pkg/volume"
)

func main() {
	// Parse command line arguments
	protocolFile := flag.String("protocol", "", "Raw protocol header text file")
	configPath := flag.String("config", "recotwix.yaml", "Configuration file (YAML)")
	collection := flag.String("collection", "", "Export a single collection (slc, ptx or adj; default: all)")
	exportNifti := flag.Bool("export", false, "Export volumes as NIfTI files")
	coverage := flag.Bool("coverage", false, "Render coverage slice images for all volumes")
	summary := flag.Bool("summary", false, "Print the acquisition parameter summary")
	flag.Parse()

	// Validate inputs
	if *protocolFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	registry, err := volume.NewRegistry(*protocolFile)
	if err != nil {
		log.Fatalf("Failed to read protocol: %v", err)
	}

	fmt.Printf("Protocol: %s\n", *protocolFile)
	fmt.Printf("Volumes: %d in collections %v\n", registry.NumVolumes(), registry.Names())

	tags := registry.Names()
	if *collection != "" {
		tags = []string{*collection}
	}

	var all []*volume.Descriptor
	for _, tag := range tags {
		col, err := registry.Get(tag)
		if err != nil {
			log.Fatalf("Unknown collection: %v", err)
		}

		for i, d := range col.All() {
			all = append(all, d)
			if cfg.Verbose {
				shape := d.Shape()
				fov := d.FOV()
				fmt.Printf("  %-14s shape (%d, %d, %d)  fov (%g, %g, %g) mm  thickness %.3g mm\n",
					d.Name(), shape[0], shape[1], shape[2], fov[0], fov[1], fov[2], d.Thickness())
			}

			if *exportNifti {
				if err := os.MkdirAll(cfg.Export.OutputDir, 0755); err != nil {
					log.Fatalf("Failed to create output directory: %v", err)
				}
				ext := ".nii"
				if cfg.Export.Compress {
					ext = ".nii.gz"
				}
				path := filepath.Join(cfg.Export.OutputDir, fmt.Sprintf("%s_%02d%s", tag, i, ext))
				if err := d.WriteNifti(path); err != nil {
					log.Fatalf("Failed to export %s: %v", d.Name(), err)
				}
				fmt.Printf("  saved %s\n", path)
			}
		}
	}

	if *coverage && len(all) > 0 {
		grid, err := visualization.Rasterize(all, cfg.Coverage.GridSize)
		if err != nil {
			log.Fatalf("Failed to rasterize coverage: %v", err)
		}
		viewer := visualization.NewViewer(grid)
		for _, axis := range cfg.Coverage.Axes {
			axisDir := filepath.Join(cfg.Coverage.OutputDir, axis)
			fmt.Printf("Saving %s-axis coverage slices to: %s\n", axis, axisDir)
			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
			}
		}
	}

	if *summary {
		printSummary(registry.Protocol())
	}
}

// printSummary extracts and prints the acquisition parameters. The parsed
// file carries the configuration tree only, so header-level fields (protocol
// name, timing) fall back to their defaults when absent.
func printSummary(prot protocol.Protocol) {
	s := protocol.NewSummary(protocol.Protocol{"MeasYaps": prot}, nil)

	fmt.Println("\nAcquisition parameters:")
	fmt.Printf("  3D acquisition:      %v\n", s.Is3D)
	fmt.Printf("  Matrix:              %d x %d x %d\n", s.Resolution.X, s.Resolution.Y, s.Resolution.Z)
	fmt.Printf("  Parallel imaging:    %v (factors %d, %d)\n", s.IsParallelImaging, s.Acceleration[0], s.Acceleration[1])
	fmt.Printf("  Separate ref scan:   %v\n", s.IsRefScanSeparate)
	fmt.Printf("  Partial Fourier:     RO=%v PE1=%v PE2=%v\n", s.IsPartialFourierRO, s.IsPartialFourierPE1, s.IsPartialFourierPE2)
	fmt.Printf("  Coil:                %s\n", s.CoilName)
	fmt.Printf("  Shims:               A00=%g X=%g Y=%g Z=%g A20=%g\n",
		s.Shims.A00, s.Shims.X, s.Shims.Y, s.Shims.Z, s.Shims.A20)
}
