package main

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/cutstorm/internal/app"
)

type replayResult struct {
	printed []byte
	dump    []byte
}

func newReplayCmd(c *cli) *cobra.Command {
	var (
		out        outputOptions
		jobs       int
		journalDir string
	)
	cmd := &cobra.Command{
		Use:   "replay script.lua...",
		Short: "Run edit scripts, each on a fresh timeline, and dump the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.validate(); err != nil {
				return err
			}
			if jobs <= 0 {
				jobs = runtime.NumCPU()
			}

			results := make([]replayResult, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(jobs)
			for i, path := range args {
				g.Go(func() error {
					res, err := c.replayScript(ctx, path, journalDir)
					results[i] = res
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, res := range results {
				if _, err := w.Write(res.printed); err != nil {
					return err
				}
				if err := out.render(w, res.dump); err != nil {
					return err
				}
			}
			return nil
		},
	}
	out.register(cmd)
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "scripts run in parallel (default: number of CPUs)")
	cmd.Flags().StringVar(&journalDir, "journal-dir", "", "save each script's journal to this directory")
	return cmd
}

// replayScript runs one script on its own session.
func (c *cli) replayScript(ctx context.Context, path, journalDir string) (replayResult, error) {
	var printed bytes.Buffer
	s, err := c.newSession(&printed)
	if err != nil {
		return replayResult{}, err
	}
	defer s.Close()

	if err := s.RunScript(ctx, path); err != nil {
		return replayResult{}, err
	}
	if err := s.Check(); err != nil {
		return replayResult{}, app.NewOperationError("check", path, err)
	}
	if journalDir != "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := s.SaveJournal(filepath.Join(journalDir, base+".yaml")); err != nil {
			return replayResult{}, err
		}
	}

	dump, err := s.Dump()
	if err != nil {
		return replayResult{}, err
	}
	if dump, err = app.Annotate(dump, "meta.script", path); err != nil {
		return replayResult{}, err
	}
	return replayResult{printed: printed.Bytes(), dump: dump}, nil
}
