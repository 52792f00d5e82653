package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/torosent/cacheprobe/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCommand(stdin)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if errors.Is(err, errAborted) {
		return nil
	}
	return err
}

func newRootCommand(stdin io.Reader) *cobra.Command {
	root := &cobra.Command{
		Use:   "cacheprobe",
		Short: "Measure hit rate, latency and savings of a semantic caching proxy",
		Long: "cacheprobe sends rate-limited chat completions through a caching proxy, classifies\n" +
			"each response as an exact hit, semantic hit or miss by latency, and reports\n" +
			"hit rates, cost savings and latency per scenario.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, stdin)
			if err != nil {
				return err
			}
			defer a.close()
			return a.runSuite(cmd.Context())
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "metrics",
		Short: "Print the proxy's own cache metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, stdin)
			if err != nil {
				return err
			}
			defer a.close()
			return a.printProxyMetrics(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "demo",
		Short: "Walk through a miss, an exact hit, two paraphrases and an unrelated question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, stdin)
			if err != nil {
				return err
			}
			defer a.close()
			return a.runDemo(cmd.Context())
		},
	})
	return root
}
