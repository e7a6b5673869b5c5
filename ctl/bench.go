// Package ctl holds the implementations behind the latticedb CLI's
// subcommands, grounded on the teacher's ctl package shape: a command is
// a struct with its flags as exported fields and a Run(ctx) error
// method, constructed with its stdio wired in, and kept deliberately
// thin about cobra (cmd/latticedb owns the flag definitions).
package ctl

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/latticedb/latticedb/bptree"
	"github.com/latticedb/latticedb/bufferpool"
	"github.com/latticedb/latticedb/logger"
)

// BenchCommand loads a B+ tree with sequential keys, then issues
// concurrent point lookups across NumWorkers goroutines -- the
// concurrency §5 actually permits, since Get only ever holds a single
// node's read latch at a time.
type BenchCommand struct {
	Stdout io.Writer

	DataFile        string
	PoolSize        int
	ReplacerK       int
	LeafMaxSize     int
	InternalMaxSize int
	NumKeys         int
	NumWorkers      int
}

// NewBenchCommand returns a BenchCommand with the teacher's convention
// of sane, overridable defaults baked into the zero-configured command.
func NewBenchCommand(stdout io.Writer) *BenchCommand {
	return &BenchCommand{
		Stdout:          stdout,
		DataFile:        "latticedb-bench.db",
		PoolSize:        256,
		ReplacerK:       2,
		LeafMaxSize:     64,
		InternalMaxSize: 64,
		NumKeys:         50000,
		NumWorkers:      8,
	}
}

// Run executes the benchmark.
func (cmd *BenchCommand) Run(ctx context.Context) error {
	if cmd.NumWorkers <= 0 {
		return errors.New("bench: num-workers must be positive")
	}

	dm, err := bufferpool.NewFileDiskManager(cmd.DataFile)
	if err != nil {
		return errors.Wrap(err, "open data file")
	}
	pool := bufferpool.NewBufferPoolManager(cmd.PoolSize, cmd.ReplacerK, dm, logger.NopLogger)
	defer pool.Close()

	tree, err := bptree.CreateBPlusTree(pool, cmd.LeafMaxSize, cmd.InternalMaxSize, logger.NopLogger)
	if err != nil {
		return errors.Wrap(err, "create tree")
	}

	insertStart := time.Now()
	for i := 0; i < cmd.NumKeys; i++ {
		if _, err := tree.Insert(bptree.Key(i), bptree.RecordID(i)); err != nil {
			return errors.Wrap(err, "insert")
		}
	}
	insertElapsed := time.Since(insertStart)
	fmt.Fprintf(cmd.Stdout, "inserted %d keys in %v (%.0f ops/sec)\n",
		cmd.NumKeys, insertElapsed, float64(cmd.NumKeys)/insertElapsed.Seconds())

	g, gctx := errgroup.WithContext(ctx)
	perWorker := cmd.NumKeys / cmd.NumWorkers
	lookupStart := time.Now()
	for w := 0; w < cmd.NumWorkers; w++ {
		lo := w * perWorker
		hi := lo + perWorker
		if w == cmd.NumWorkers-1 {
			hi = cmd.NumKeys
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				_, found, err := tree.Get(bptree.Key(i))
				if err != nil {
					return err
				}
				if !found {
					return errors.Errorf("bench: key %d unexpectedly missing", i)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "concurrent lookup")
	}
	lookupElapsed := time.Since(lookupStart)
	fmt.Fprintf(cmd.Stdout, "%d concurrent lookups across %d workers in %v (%.0f ops/sec)\n",
		cmd.NumKeys, cmd.NumWorkers, lookupElapsed, float64(cmd.NumKeys)/lookupElapsed.Seconds())

	return nil
}
