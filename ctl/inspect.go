package ctl

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/latticedb/latticedb/bptree"
	"github.com/latticedb/latticedb/bufferpool"
	"github.com/latticedb/latticedb/logger"
)

// InspectCommand opens an existing data file read-write (the buffer pool
// has no read-only mode) and dumps its tree structure. Since this spec
// carries no durable catalog (§9's non-goals exclude durable metadata),
// the caller must already know the header page id -- normally 0, since
// CreateBPlusTree allocates it first against an empty file.
type InspectCommand struct {
	Stdout io.Writer

	DataFile        string
	PoolSize        int
	HeaderPageID    int32
	LeafMaxSize     int
	InternalMaxSize int
}

// NewInspectCommand returns an InspectCommand with the same header-page
// default CreateBPlusTree produces against a fresh file.
func NewInspectCommand(stdout io.Writer) *InspectCommand {
	return &InspectCommand{
		Stdout:          stdout,
		PoolSize:        64,
		HeaderPageID:    0,
		LeafMaxSize:     64,
		InternalMaxSize: 64,
	}
}

// Run dumps the tree's page structure to Stdout.
func (cmd *InspectCommand) Run(ctx context.Context) error {
	if cmd.DataFile == "" {
		return errors.New("inspect: --data-file is required")
	}
	dm, err := bufferpool.NewFileDiskManager(cmd.DataFile)
	if err != nil {
		return errors.Wrap(err, "open data file")
	}
	pool := bufferpool.NewBufferPoolManager(cmd.PoolSize, 2, dm, logger.NopLogger)
	defer pool.Close()

	tree := bptree.OpenBPlusTree(pool, bufferpool.PageID(cmd.HeaderPageID), cmd.LeafMaxSize, cmd.InternalMaxSize, logger.NopLogger)
	if err := tree.Dump(cmd.Stdout); err != nil {
		return err
	}

	fmt.Fprintln(cmd.Stdout, "\nbuffer pool frames:")
	return pool.DumpFrames(cmd.Stdout)
}
