package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mitchellh/colorstring"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"bittorrent/torrent"
	"bittorrent/torrent/tlog"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: ./bittorrent <path-to-torrent-file> [output-dir]\n")
		os.Exit(1)
	}

	path := os.Args[1]
	outputDir := "."
	if len(os.Args) >= 3 {
		outputDir = os.Args[2]
	}

	meta, err := torrent.ParseMetainfo(path)
	if err != nil {
		log.Fatalf("%v\n", err)
	}

	numPieces, err := meta.File.NumPieces()
	if err != nil {
		log.Fatalf("%v\n", err)
	}

	zlog := tlog.New()
	defer zlog.Sync()

	cfg := torrent.DefaultEngineConfig()
	engine := torrent.NewEngine(cfg, zlog)

	bar := progressbar.NewOptions(numPieces,
		progressbar.OptionSetDescription(meta.File.Info.Name),
		progressbar.OptionSetWidth(barWidth()),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	engine.Progress = func(completed, total int, pieceBytes int64) {
		bar.Set(completed)
	}

	colorstring.Printf("[blue]starting download[reset] of %s (%d pieces)\n", meta.File.Info.Name, numPieces)

	buf, err := engine.DownloadAll(meta)
	if err != nil {
		colorstring.Fprintf(os.Stderr, "[red]download failed:[reset] %v\n", err)
		os.Exit(1)
	}

	writer := torrent.OSFileWriter{OutputDir: outputDir}
	if err := torrent.WriteAll(buf, meta.File.FileSpans(), writer); err != nil {
		colorstring.Fprintf(os.Stderr, "[red]writing output failed:[reset] %v\n", err)
		os.Exit(1)
	}

	colorstring.Println("\n[green]download complete[reset]")
}

// barWidth sizes the progress bar to the terminal, falling back to a fixed
// width when stdout isn't a TTY (e.g. piped output, CI logs).
func barWidth() int {
	const fallback = 40
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fallback
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 10 {
		return fallback
	}
	return w / 2
}
