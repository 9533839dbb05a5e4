package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatchCmd(a *app) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Run a pipe file again whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasContent = cmd.Flags().Changed("content")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.watch(ctx, cmd, args[0], opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func (a *app) watch(ctx context.Context, cmd *cobra.Command, path string, opts *runOptions) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory; editors often replace the file.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", path, err)
	}

	rerun := func() {
		cmd.SetContext(ctx)
		data, err := readPipeFile(target)
		if err == nil {
			err = a.run(cmd, data, opts)
		}
		if err != nil {
			a.logger.Error("pipe run failed", "file", path, "error", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return watcher.Close()
	})
	g.Go(func() error {
		rerun()
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "--- %s changed\n", path)
					rerun()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				a.logger.Warn("watcher error", "error", err)
			}
		}
	})
	return g.Wait()
}
