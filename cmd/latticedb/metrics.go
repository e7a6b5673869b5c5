package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/latticedb/latticedb/bufferpool"
	"github.com/latticedb/latticedb/ctl"
	"github.com/latticedb/latticedb/logger"
)

func newMetricsCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var dataFile string
	var poolSize int
	var replacerK int

	cmd := ctl.NewMetricsCommand(stdout)
	ccmd := &cobra.Command{
		Use:   "metrics",
		Short: "open a data file and print the buffer pool's counters",
		Long: `
metrics opens a data file against a fresh buffer pool and prints its
prometheus counters (hits, misses, evictions, writebacks) in the
standard text exposition format.
`,
		RunE: func(c *cobra.Command, args []string) error {
			dm, err := bufferpool.NewFileDiskManager(dataFile)
			if err != nil {
				return err
			}
			pool := bufferpool.NewBufferPoolManager(poolSize, replacerK, dm, logger.NopLogger)
			defer pool.Close()

			cmd.Pool = pool
			return cmd.Run(context.Background())
		},
	}

	flags := ccmd.Flags()
	flags.StringVar(&dataFile, "data-file", "latticedb.db", "path to the data file to open")
	flags.IntVar(&poolSize, "pool-size", 64, "number of frames in the buffer pool")
	flags.IntVar(&replacerK, "replacer-k", 2, "k value for the LRU-K replacer")
	return ccmd
}
