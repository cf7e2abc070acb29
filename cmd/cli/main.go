// Command accentdna detects the accent of a speech recording by comparing it
// against a directory of labeled reference samples.
//
// Usage:
//
//	accentdna [flags] <command> [args]
//
// Commands:
//
//	detect      - Predict the accent of an audio/video file or URL
//	references  - List the loaded reference samples
//	transcribe  - Transcribe an audio/video file
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errNoPrediction) {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
