package main

// Run OCR against a local image with the configured engine:
//   go run ./cmd/ocr -file scan.png [-engine cli] [-lang eng,por]

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"docqa-backend/internal/bootstrap"
	"docqa-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	filePath := flag.String("file", "", "Path to image file")
	engine := flag.String("engine", cfg.OCREngine, "OCR engine (tesseract or cli)")
	langs := flag.String("lang", strings.Join(cfg.OCRLanguages, ","), "Comma-separated OCR languages")
	timeout := flag.Duration("timeout", 2*time.Minute, "Recognition timeout")
	flag.Parse()

	if strings.TrimSpace(*filePath) == "" {
		exitErr("file path is required")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		exitErr(fmt.Sprintf("read file: %v", err))
	}

	cfg.OCREngine = *engine
	cfg.OCRLanguages = nil
	for _, l := range strings.Split(*langs, ",") {
		if l = strings.TrimSpace(l); l != "" {
			cfg.OCRLanguages = append(cfg.OCRLanguages, l)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	extractor := bootstrap.BuildExtractor(cfg, nil)
	text, err := extractor.ExtractBytes(ctx, data, http.DetectContentType(data))
	if err != nil {
		exitErr(fmt.Sprintf("extract: %v", err))
	}
	fmt.Println(text)
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
