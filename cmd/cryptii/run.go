package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
)

type runOptions struct {
	content    string
	hasContent bool
	bucket     int
	trace      bool
}

func (o *runOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.content, "content", "", "text to put into a bucket before running")
	flags.IntVar(&o.bucket, "bucket", -1, "bucket receiving --content (default: the stored bucket)")
	flags.BoolVar(&o.trace, "trace", false, "log every brick operation and print the run log")
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Load a pipe file, propagate its content and print every bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasContent = cmd.Flags().Changed("content")
			data, err := readPipeFile(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, data, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

// readPipeFile parses a pipe definition. Comments and trailing commas are
// allowed.
func readPipeFile(path string) (*cryptii.PipeData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := cryptii.ParsePipeData(jsonc.ToJSON(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

func (a *app) run(cmd *cobra.Command, data *cryptii.PipeData, opts *runOptions) error {
	ctx := cmd.Context()
	p := a.newPipe(cmd, opts.trace)
	defer p.Close()

	if err := p.Extract(data); err != nil {
		return err
	}
	if opts.hasContent {
		bucket := opts.bucket
		if bucket < 0 {
			bucket = p.SelectedBucket()
		}
		if err := p.SetContent(chain.FromString(opts.content), bucket, nil); err != nil {
			return err
		}
	}
	if err := p.WaitIdle(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := printBuckets(out, p); err != nil {
		return err
	}
	if opts.trace {
		fmt.Fprintf(out, "\n%s\n", p.Describe())
		printRuns(out, p.Runs().Records())
	}
	return nil
}

// printBuckets writes one line per bucket, marking the selected one.
func printBuckets(w io.Writer, p *cryptii.Pipe) error {
	selected := p.SelectedBucket()
	for i := range p.BucketCount() {
		content, err := p.Content(i)
		if err != nil {
			return err
		}
		marker := " "
		if i == selected {
			marker = "*"
		}
		fmt.Fprintf(w, "%s[%d] %s\n", marker, i, format(content))
	}
	return nil
}

// format renders text as is and binary content as hex.
func format(c *chain.Chain) string {
	if c.IsText() {
		if s, err := c.Text(); err == nil {
			return s
		}
	}
	s := hex.EncodeToString(c.Bytes())
	if c.Padding() > 0 {
		s += fmt.Sprintf(" (%d padding bits)", c.Padding())
	}
	return s
}

func printRuns(w io.Writer, records []cryptii.RunRecord) {
	fmt.Fprintln(w, "Runs:")
	for _, r := range records {
		direction := ""
		if r.Kind == cryptii.OpTranslate {
			direction = " decode"
			if r.IsEncode {
				direction = " encode"
			}
		}
		line := fmt.Sprintf("  #%d %s %s%s: %s (%s)", r.Seq, r.BrickName, r.Kind, direction, r.Outcome, r.Duration)
		if r.Retriggered {
			line += " retriggered"
		}
		if r.Err != nil {
			line += ": " + r.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
}
