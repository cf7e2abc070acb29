package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna"
	"github.com/himanishpuri/AccentDNA/pkg/config"
	"github.com/himanishpuri/AccentDNA/pkg/logger"
)

// app holds the global flags and the settings resolved from them.
type app struct {
	configPath string
	logLevel   string
	quiet      bool

	referenceDir string
	tempDir      string
	scorer       string
	scorerURL    string
	ffmpeg       string

	settings *config.Settings
	log      *logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "accentdna",
		Short: "Accent detection from speech recordings",
		Long: `accentdna - compare a speech recording against labeled reference samples
and report the closest accent.

Reference samples are WAV files named after their accent label
(british.wav, american.wav, ...) in the reference directory.

Settings are read from accentdna.yaml (or --config), then ACCENT_*
environment variables, then flags.

Examples:
  # Detect from a local recording
  accentdna detect me.m4a

  # Detect from a video page and save a spectrogram
  accentdna detect --url "https://youtube.com/watch?v=dQw4w9WgXcQ" --plot me.png

  # Machine readable output
  accentdna detect me.wav --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "config file (default: ./accentdna.yaml if present)")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.BoolVarP(&a.quiet, "quiet", "q", false, "suppress banner and progress output")
	f.StringVarP(&a.referenceDir, "references", "r", "", "reference sample directory (env: ACCENT_REFERENCE_DIR)")
	f.StringVar(&a.tempDir, "temp", "", "directory for scratch files (env: ACCENT_TEMP_DIR)")
	f.StringVar(&a.scorer, "scorer", "", "scoring backend: spectral, verify, embedding (env: ACCENT_SCORER)")
	f.StringVar(&a.scorerURL, "scorer-url", "", "scoring sidecar base URL (env: ACCENT_SCORER_URL)")
	f.StringVar(&a.ffmpeg, "ffmpeg", "", "ffmpeg binary (env: ACCENT_FFMPEG)")

	root.AddCommand(
		newDetectCmd(a),
		newReferencesCmd(a),
		newTranscribeCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	s, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("references") {
		s.ReferenceDir = a.referenceDir
	}
	if flags.Changed("temp") {
		s.TempDir = a.tempDir
	}
	if flags.Changed("scorer") {
		s.Scorer.Backend = a.scorer
	}
	if flags.Changed("scorer-url") {
		s.Scorer.URL = a.scorerURL
	}
	if flags.Changed("ffmpeg") {
		s.FFmpeg.Path = a.ffmpeg
	}
	if flags.Changed("log-level") {
		s.LogLevel = a.logLevel
	}
	if err := s.Validate(); err != nil {
		return err
	}

	a.settings = s
	a.log = logger.GetLogger()
	a.log.SetLevel(logger.ParseLevel(s.LogLevel))
	return nil
}

func (a *app) newService() (accentdna.Service, error) {
	svc, err := accentdna.NewService(a.settings.ServiceOptions(a.log)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

// progress prints a status line to stderr unless output is quiet.
func (a *app) progress(cmd *cobra.Command, format string, args ...any) {
	if a.quiet {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}

func (a *app) printBanner(w io.Writer) {
	if a.quiet {
		return
	}
	banner := `
    _                         _   ____  _   _    _
   / \   ___ ___ ___ _ __ | |_|  _ \| \ | |  / \
  / _ \ / __/ __/ _ \ '_ \| __| | | |  \| | / _ \
 / ___ \ (_| (_|  __/ | | | |_| |_| | |\  |/ ___ \
/_/   \_\___\___\___|_| |_|\__|____/|_| \_/_/   \_\

            Accent Detection CLI Tool
`
	fmt.Fprintln(w, banner)
}
