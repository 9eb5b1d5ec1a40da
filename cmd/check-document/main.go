package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/sgchandra/anatomify/internal/document"
	"github.com/sgchandra/anatomify/internal/imaging"
)

func main() {
	path := flag.String("file", "", "Path to a PDF or image file")
	flag.Parse()

	if *path == "" {
		fmt.Println("Please provide a file path using -file flag")
		os.Exit(1)
	}

	mediaType := document.DetectMediaType(*path)
	if mediaType == "" {
		fmt.Printf("Unsupported file type: %s\n", *path)
		os.Exit(1)
	}

	fmt.Printf("Analyzing %s: %s\n", mediaType, *path)

	if mediaType == document.MediaTypePDF {
		if err := api.ValidateFile(*path, nil); err != nil {
			fmt.Printf("PDF validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("PDF validates cleanly.")

		dims, err := api.PageDimsFile(*path)
		if err != nil {
			fmt.Printf("Error getting page dimensions: %v\n", err)
			os.Exit(1)
		}

		for i, dim := range dims {
			fmt.Printf("\nPage %d:\n", i+1)
			fmt.Printf("Dimensions (Width x Height): %.3f x %.3f points\n", dim.Width, dim.Height)
		}
		return
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		os.Exit(1)
	}

	img, err := imaging.Decode(data)
	if err != nil {
		fmt.Printf("Error decoding image: %v\n", err)
		os.Exit(1)
	}

	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	fmt.Printf("Dimensions (Width x Height): %d x %d px\n", w, h)

	if w > imaging.MaxAnnotateDim || h > imaging.MaxAnnotateDim {
		fmt.Printf("Annotation stage would downscale to fit %d px.\n", imaging.MaxAnnotateDim)
	} else {
		fmt.Println("Annotation stage would keep the original size.")
	}
}
