// fdio is a small copy utility driving the file-device layer: it reads the
// source through timeout-bounded device I/O, writes the destination through a
// buffered stream and optionally verifies the result with a checksum.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/copperwire/fdio/internal/configuration"
	"github.com/copperwire/fdio/stream"
	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string

	configFile = flag.String("config", "", "read default settings from this file")
	timeout    = flag.Duration("timeout", 30*time.Second, "time budget per transfer attempt")
	bufSize    = flag.Int("bufsize", 0, "destination buffer size in bytes (0 = default)")
	buffering  = flag.String("buffering", "full", "destination write buffering (full, line, none)")
	format     = flag.String("format", "", "external text format for the destination")
	clobber    = flag.Bool("clobber", false, "delete and recreate an existing destination")
	verify     = flag.Bool("verify", true, "verify the destination checksum after copying")
)

func setupLogging() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}),
	))
}

func applyConfigDefaults() {
	if *configFile == "" {
		return
	}

	configHandler := configuration.NewHandler(&configuration.GodotenvProvider{})

	envMap, err := configHandler.Load(*configFile)
	if err != nil {
		slog.Warn("Failed to read configuration file.", "err", err, "file", *configFile)

		return
	}

	*timeout = configHandler.Duration(envMap, "FDIO_TIMEOUT", *timeout)
	*bufSize = configHandler.Int(envMap, "FDIO_BUFFER_SIZE", *bufSize)
	*buffering = configHandler.String(envMap, "FDIO_BUFFERING", *buffering)
	*format = configHandler.String(envMap, "FDIO_FORMAT", *format)
}

func parseBuffering(name string) (stream.Buffering, error) {
	switch name {
	case "full":
		return stream.BufferFull, nil
	case "line":
		return stream.BufferLine, nil
	case "none":
		return stream.BufferNone, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownBuffering, name)
	}
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	flag.Parse()
	setupLogging()
	applyConfigDefaults()

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] SOURCE DESTINATION\n", os.Args[0])
		flag.PrintDefaults()
		ExitCode = 2

		return
	}

	mode, err := parseBuffering(*buffering)
	if err != nil {
		slog.Error("Invalid buffering mode.", "err", err)
		ExitCode = 2

		return
	}

	src := flag.Arg(0)
	dst := flag.Arg(1)

	start := time.Now()

	total, err := copyFile(src, dst, copySettings{
		timeout:   *timeout,
		bufSize:   *bufSize,
		buffering: mode,
		format:    *format,
		clobber:   *clobber,
		verify:    *verify && *format == "",
	})
	if err != nil {
		slog.Error("Copy failed.", "err", err, "src", src, "dst", dst)
		ExitCode = 1

		return
	}

	elapsed := time.Since(start)

	slog.Info("Copy complete.",
		"src", src,
		"dst", dst,
		"size", humanize.Bytes(uint64(total)),
		"elapsed", elapsed.Round(time.Millisecond),
	)
}
