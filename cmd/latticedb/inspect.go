package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/latticedb/latticedb/ctl"
)

func newInspectCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := ctl.NewInspectCommand(stdout)
	ccmd := &cobra.Command{
		Use:   "inspect",
		Short: "dump a data file's page structure",
		Long: `
inspect opens an existing data file and prints a depth-first rendering
of its B+ tree: every page's id, type, occupancy, and keys.
`,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Run(context.Background())
		},
	}

	flags := ccmd.Flags()
	flags.StringVar(&cmd.DataFile, "data-file", cmd.DataFile, "path to the data file to inspect")
	flags.IntVar(&cmd.PoolSize, "pool-size", cmd.PoolSize, "number of frames in the buffer pool")
	flags.Int32Var(&cmd.HeaderPageID, "header-page-id", cmd.HeaderPageID, "page id of the tree's header page")
	flags.IntVar(&cmd.LeafMaxSize, "leaf-max-size", cmd.LeafMaxSize, "maximum entries per leaf page")
	flags.IntVar(&cmd.InternalMaxSize, "internal-max-size", cmd.InternalMaxSize, "maximum entries per internal page")
	return ccmd
}
