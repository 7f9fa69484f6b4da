package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
)

func newIdentifyCmd(g *globals) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "identify <file>...",
		Short: "Rank the formats that claim each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := g.session(cmd)
			out := cmd.OutOrStdout()
			for _, path := range args {
				data, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				ms, err := s.Identify(bytes.NewReader(data), int64(len(data)), g.context(path))
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if len(ms) == 0 {
					fmt.Fprintf(out, "%s: unknown\n", path)
					continue
				}
				if !all {
					ms = ms[:1]
				}
				for _, m := range ms {
					fmt.Fprintf(out, "%s: %s (score %d)\n", path, m.Candidate.Name(), m.Score)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every format that scored, best first")
	return cmd
}
