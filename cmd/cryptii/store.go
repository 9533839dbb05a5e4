package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/cryptii/cryptii-sub001/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// withStore opens the configured store for the duration of fn.
func (a *app) withStore(fn func(store.Service) error) (err error) {
	s, closeFn, err := store.Open(a.cfg.Store.Driver, a.cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

func newSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save FILE",
		Short: "Store a pipe file and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readPipeFile(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s store.Service) error {
				id, err := s.Store(cmd.Context(), data)
				if err != nil {
					return err
				}
				a.logger.Info("pipe stored", "id", id, "driver", a.cfg.Store.Driver)
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

func newLoadCmd(a *app) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "load ID",
		Short: "Run a stored pipe and print every bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasContent = cmd.Flags().Changed("content")
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid pipe id %q: %w", args[0], err)
			}
			return a.withStore(func(s store.Service) error {
				data, err := s.Load(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.run(cmd, data, opts)
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored pipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s store.Service) error {
				records, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No pipes stored")
					return nil
				}
				for _, r := range records {
					fmt.Fprintf(out, "%s  %s  %s\n", r.ID, r.CreatedAt.Format(time.DateTime), strings.Join(r.Bricks, " > "))
				}
				return nil
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored pipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid pipe id %q: %w", args[0], err)
			}
			return a.withStore(func(s store.Service) error {
				return s.Delete(cmd.Context(), id)
			})
		},
	}
}
