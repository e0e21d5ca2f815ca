// Command locchart renders a PNG line chart from a whitespace-separated
// stats file (unix timestamp per row, one numeric column per series).
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/voxmath/VoxMath-Engine/chart"
)

func main() {
	var (
		input   = flag.String("input", "", "stats file to read (default stdin)")
		output  = flag.String("output", "chart.png", "PNG file to write")
		width   = flag.Int("width", 640, "chart width in pixels")
		height  = flag.Int("height", 240, "chart height in pixels")
		title   = flag.String("title", chart.DefaultConfig().Title, "chart title")
		authors = flag.String("authors", "", "comma-separated series labels")
	)
	flag.Parse()

	in := os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("Failed to open %s: %v", *input, err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Printf("Error closing %s: %v", *input, err)
			}
		}()
		in = f
	}

	stats, err := chart.ParseStats(in)
	if err != nil {
		log.Fatalf("Failed to parse stats: %v", err)
	}

	cfg := chart.Config{
		Width:  *width,
		Height: *height,
		Title:  *title,
	}
	if *authors != "" {
		cfg.Authors = strings.Split(*authors, ",")
	}

	img, err := chart.Render(stats, cfg)
	if err != nil {
		log.Fatalf("Failed to render chart: %v", err)
	}

	out, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *output, err)
	}

	if err := chart.WritePNG(out, img); err != nil {
		if cerr := out.Close(); cerr != nil {
			log.Printf("Error closing %s: %v", *output, cerr)
		}
		log.Fatalf("Failed to write PNG: %v", err)
	}
	if err := out.Close(); err != nil {
		log.Fatalf("Error closing %s: %v", *output, err)
	}

	log.Printf("Wrote %s (%d series, %d samples)", *output, stats.Columns(), stats.Rows())
}
