package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tauraamui/mvflow/internal/config"
	"github.com/tauraamui/mvflow/pkg/log"
	"github.com/tauraamui/mvflow/pkg/output"
	"github.com/tauraamui/mvflow/pkg/pipeline"
	"github.com/tauraamui/mvflow/pkg/video/videobackend"
)

const usage = `Usage: mvflow [--raw] videoPath

Writes the motion vectors of the first video stream in videoPath to stdout,
bucketed into 16x16 pixel cells, or one line per vector with --raw.`

type args struct {
	mode output.Mode
	path string
}

func parseArgs(argv []string) (args, bool) {
	a := args{mode: output.ModeGrid}
	for _, arg := range argv {
		if arg == "--raw" {
			a.mode = output.ModeRaw
			continue
		}
		if len(a.path) > 0 {
			return a, false
		}
		a.path = arg
	}
	return a, len(a.path) > 0
}

func run(argv []string, stdout, stderr io.Writer) int {
	a, ok := parseArgs(argv)
	if !ok {
		fmt.Fprintln(stderr, usage)
		return 1
	}

	values, err := config.DefaultResolver().Resolve()
	if err != nil {
		log.Error("unable to resolve config: %v", err)
		return 1
	}
	log.Output = stderr
	log.SetLevel(values.LoggingLevel)

	backend, err := videobackend.Resolve(values.VideoBackend)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	log.Info("using %s video backend", values.VideoBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := backend.Open(ctx, a.path)
	if err != nil {
		log.Error("unable to open %s: %v", a.path, err)
		return 1
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error("unable to close %s: %v", a.path, err)
		}
	}()

	stats, err := pipeline.Run(ctx, container, pipeline.Options{
		Mode:         a.mode,
		StallLimit:   values.StallLimit,
		StrictDecode: values.StrictDecode,
	}, stdout)
	log.Info(
		"packets: %d, discarded: %d, frames: %d, decode errors: %d, stalls: %d, interpolated: %d",
		stats.Packets, stats.Discarded, stats.Frames, stats.DecodeErrors, stats.Stalls, stats.Interpolated,
	)
	if err != nil {
		log.Error("%v", err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
