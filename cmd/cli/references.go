package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AccentDNA/pkg/accentdna"
	"github.com/himanishpuri/AccentDNA/pkg/accentdna/reference"
)

func newReferencesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "references",
		Aliases: []string{"refs", "list"},
		Short:   "List the loaded reference samples",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			out := cmd.OutOrStdout()
			for _, w := range svc.ReferenceWarnings() {
				fmt.Fprintf(out, "⚠  skipped %s\n", w)
			}

			refs := svc.References()
			if len(refs) == 0 {
				fmt.Fprintf(out, "\n📭 No reference samples in %s\n", a.settings.ReferenceDir)
				return reference.ErrNoReferencesFound
			}

			fmt.Fprintf(out, "\n📚 Found %d reference sample(s) in %s:\n\n", len(refs), a.settings.ReferenceDir)
			for i, ref := range refs {
				fmt.Fprintf(out, "%d. %s (%s)\n", i+1, accentdna.DisplayLabel(ref.Label), ref.Label)
				secs := int(ref.Duration.Seconds())
				fmt.Fprintf(out, "   Duration: %d:%02d\n", secs/60, secs%60)
				fmt.Fprintf(out, "   File:     %s\n", ref.Path)
			}
			return nil
		},
	}
}
