package ctl

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/latticedb/latticedb/bufferpool"
)

// MetricsCommand renders a buffer pool's prometheus counters as plain
// text, the same exposition format a /metrics HTTP endpoint would serve
// -- the teacher links client_golang for exactly this kind of internal
// instrumentation, just behind an HTTP handler instead of a CLI dump.
type MetricsCommand struct {
	Stdout io.Writer
	Pool   *bufferpool.BufferPoolManager
}

// NewMetricsCommand returns a MetricsCommand. Pool must be set by the
// caller before Run -- there is no metrics store independent of a live
// buffer pool.
func NewMetricsCommand(stdout io.Writer) *MetricsCommand {
	return &MetricsCommand{Stdout: stdout}
}

// Run gathers and prints the pool's current counters.
func (cmd *MetricsCommand) Run(ctx context.Context) error {
	if cmd.Pool == nil {
		return errors.New("metrics: no buffer pool attached")
	}

	reg := prometheus.NewRegistry()
	for _, c := range cmd.Pool.Metrics().Collectors() {
		if err := reg.Register(c); err != nil {
			return errors.Wrap(err, "register collector")
		}
	}

	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}

	enc := expfmt.NewEncoder(cmd.Stdout, expfmt.FmtText)
	for _, f := range families {
		if err := enc.Encode(f); err != nil {
			return errors.Wrap(err, "encode metrics")
		}
	}
	return nil
}
