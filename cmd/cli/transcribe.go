package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTranscribeCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "transcribe <audio_file>",
		Short: "Transcribe a recording without accent detection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.settings.Transcription.Enabled = true
			if err := a.settings.Validate(); err != nil {
				return err
			}

			svc, err := a.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a.progress(cmd, "📝 Transcribing %s...", args[0])
			text, err := svc.Transcribe(ctx, args[0])
			if err != nil {
				return fmt.Errorf("transcription failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall time limit")
	return cmd
}
