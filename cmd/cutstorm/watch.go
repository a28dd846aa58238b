package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/cutstorm/internal/watch"
)

func newWatchCmd(c *cli) *cobra.Command {
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "watch path...",
		Short: "Re-run edit scripts whenever they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := watch.New(watch.WithDelay(delay), watch.WithExtensions(".lua"))
			if err != nil {
				return err
			}
			defer w.Close()

			for _, p := range args {
				if err := w.Add(p); err != nil {
					return fmt.Errorf("watch %s: %w", p, err)
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "watching %d paths\n", len(args))

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-w.Events():
					if !ok {
						return nil
					}
					if !ev.Op.Has(watch.OpCreate) && !ev.Op.Has(watch.OpWrite) {
						continue
					}
					c.rerun(cmd, out, ev.Path)
				case err, ok := <-w.Errors():
					if !ok {
						return nil
					}
					c.logger.Warn("watch error", "error", err)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", watch.DefaultDelay, "quiet period before a changed script is re-run")
	return cmd
}

// rerun applies a changed script to a fresh session and reports the result.
func (c *cli) rerun(cmd *cobra.Command, out io.Writer, path string) {
	s, err := c.newSession(io.Discard)
	if err != nil {
		report(out, path, err)
		return
	}
	defer s.Close()

	if err = s.RunScript(cmd.Context(), path); err == nil {
		err = s.Check()
	}
	if err != nil {
		report(out, path, err)
		return
	}
	m := s.Model()
	clips := 0
	for _, id := range m.TrackIDs() {
		clips += len(m.TrackClips(id))
	}
	fmt.Fprintf(out, "%s: ok duration=%d clips=%d commands=%d\n", path, m.Duration(), clips, len(s.Journal()))
}
