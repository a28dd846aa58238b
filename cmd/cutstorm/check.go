package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check file...",
		Short: "Apply scripts or journals and verify the resulting timelines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, path := range args {
				err := c.checkFile(cmd.Context(), path)
				report(cmd.OutOrStdout(), path, err)
				errs = append(errs, err)
			}
			return errors.Join(errs...)
		},
	}
}

// checkFile applies path, a script or a journal, to a fresh session.
func (c *cli) checkFile(ctx context.Context, path string) error {
	s, err := c.newSession(io.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	if isJournal(path) {
		_, err = s.PlayJournal(ctx, path, false)
	} else {
		err = s.RunScript(ctx, path)
	}
	if err != nil {
		return err
	}
	return s.Check()
}

func report(w io.Writer, path string, err error) {
	if err != nil {
		fmt.Fprintf(w, "%s: FAIL %v\n", path, err)
		return
	}
	fmt.Fprintf(w, "%s: ok\n", path)
}
