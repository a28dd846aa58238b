package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/cutstorm/internal/app"
	"github.com/dshills/cutstorm/internal/command"
)

func newJournalCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Record, inspect and replay command journals",
	}
	cmd.AddCommand(
		newJournalRecordCmd(c),
		newJournalPlayCmd(c),
		newJournalShowCmd(),
	)
	return cmd
}

func newJournalRecordCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "record script.lua journal.yaml",
		Short: "Run a script and save the commands it applied",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.newSession(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.RunScript(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := s.SaveJournal(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "recorded %d commands to %s\n", len(s.Journal()), args[1])
			return nil
		},
	}
}

func newJournalPlayCmd(c *cli) *cobra.Command {
	var (
		out       outputOptions
		keepGoing bool
	)
	cmd := &cobra.Command{
		Use:   "play journal.yaml",
		Short: "Replay a journal on a fresh timeline and dump the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.validate(); err != nil {
				return err
			}
			s, err := c.newSession(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := s.PlayJournal(cmd.Context(), args[0], keepGoing)
			for _, f := range report.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "command %d (%s): %v\n", f.Index, f.Command.Kind, f.Err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "applied %d commands, %d failed\n", report.Applied, len(report.Failures))

			if err := s.Check(); err != nil {
				return app.NewOperationError("check", args[0], err)
			}
			dump, err := s.Dump()
			if err != nil {
				return err
			}
			return out.render(cmd.OutOrStdout(), dump)
		},
	}
	out.register(cmd)
	cmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "continue past failing commands")
	return cmd
}

func newJournalShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show journal.yaml",
		Short: "List the commands of a journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := command.Load(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# %s (%d commands)\n", j.Name, len(j.Commands))
			for i, c := range j.Commands {
				fmt.Fprintf(w, "%3d  %s\n", i, c)
			}
			return nil
		},
	}
}
