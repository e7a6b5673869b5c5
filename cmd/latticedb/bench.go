package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/latticedb/latticedb/ctl"
)

func newBenchCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := ctl.NewBenchCommand(stdout)
	ccmd := &cobra.Command{
		Use:   "bench",
		Short: "load a tree with sequential keys and benchmark concurrent lookups",
		Long: `
bench creates a fresh data file, inserts num-keys sequential keys into
a B+ tree, then issues concurrent point lookups across num-workers
goroutines and reports throughput for both phases.
`,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Run(context.Background())
		},
	}

	flags := ccmd.Flags()
	flags.StringVar(&cmd.DataFile, "data-file", cmd.DataFile, "path to the data file to create")
	flags.IntVar(&cmd.PoolSize, "pool-size", cmd.PoolSize, "number of frames in the buffer pool")
	flags.IntVar(&cmd.ReplacerK, "replacer-k", cmd.ReplacerK, "k value for the LRU-K replacer")
	flags.IntVar(&cmd.LeafMaxSize, "leaf-max-size", cmd.LeafMaxSize, "maximum entries per leaf page")
	flags.IntVar(&cmd.InternalMaxSize, "internal-max-size", cmd.InternalMaxSize, "maximum entries per internal page")
	flags.IntVar(&cmd.NumKeys, "num-keys", cmd.NumKeys, "number of keys to insert and look up")
	flags.IntVar(&cmd.NumWorkers, "num-workers", cmd.NumWorkers, "number of concurrent lookup goroutines")
	return ccmd
}
