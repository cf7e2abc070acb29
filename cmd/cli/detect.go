package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/report"
)

// errNoPrediction makes the process exit non-zero after the report was
// already printed.
var errNoPrediction = errors.New("no prediction")

type detectOptions struct {
	url        string
	json       bool
	plot       string
	transcribe bool
	timeout    time.Duration
}

func newDetectCmd(a *app) *cobra.Command {
	opts := &detectOptions{}

	cmd := &cobra.Command{
		Use:   "detect [audio_file]",
		Short: "Predict the accent of a recording",
		Long: `Normalize the recording to 16 kHz mono, score it against every reference
sample and report the best match.

Any container ffmpeg can read is accepted; without ffmpeg only WAV input
works. Use --url to download the audio of a video page instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDetect(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.url, "url", "", "video page URL to download and analyze (alternative to audio file)")
	f.BoolVar(&opts.json, "json", false, "print the report as JSON")
	f.StringVar(&opts.plot, "plot", "", "write a spectrogram PNG of the normalized input to this path")
	f.BoolVar(&opts.transcribe, "transcribe", false, "also transcribe the recording (needs OPENAI_API_KEY)")
	f.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall time limit")
	return cmd
}

func (a *app) runDetect(cmd *cobra.Command, args []string, opts *detectOptions) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	switch {
	case opts.url != "" && path != "":
		return errors.New("cannot specify both audio file and --url")
	case opts.url == "" && path == "":
		return errors.New("audio file path or --url required")
	}

	if opts.json {
		a.quiet = true
	}
	if opts.transcribe {
		a.settings.Transcription.Enabled = true
		if err := a.settings.Validate(); err != nil {
			return err
		}
	}

	a.printBanner(cmd.ErrOrStderr())
	a.progress(cmd, "🔧 Initializing service...")
	svc, err := a.newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	var rep *accentdna.Report
	if opts.url != "" {
		a.progress(cmd, "📥 Downloading audio...")
		a.progress(cmd, "   This may take a few moments depending on video length")
		rep, err = svc.DetectURL(ctx, opts.url)
	} else {
		a.progress(cmd, "🔍 Analyzing audio file...")
		rep, err = svc.Detect(ctx, path)
	}
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if opts.plot != "" {
		if err := report.WriteSpectrogram(opts.plot, rep.Waveform); err != nil {
			a.log.Warnf("Failed to write spectrogram: %v", err)
		} else {
			a.progress(cmd, "🖼  Spectrogram saved to %s", opts.plot)
		}
	}

	out := cmd.OutOrStdout()
	if opts.json {
		err = report.WriteJSON(out, rep)
	} else {
		err = report.Render(out, rep)
	}
	if err != nil {
		return err
	}

	if !rep.HasPrediction() {
		return errNoPrediction
	}
	return nil
}
