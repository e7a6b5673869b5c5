package bufferpool

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the buffer pool's prometheus collectors. The pool
// updates them inline on the hot path; a caller that wants them scraped
// registers them with a prometheus.Registerer (see ctl/metrics.go).
type Metrics struct {
	hits           prometheus.Counter
	misses         prometheus.Counter
	evictions      prometheus.Counter
	diskReads      prometheus.Counter
	diskWrites     prometheus.Counter
	pagesAllocated prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "latticedb_bufferpool_hits_total",
			Help: "Pages served from an already-resident frame.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "latticedb_bufferpool_misses_total",
			Help: "Pages that required a disk read to become resident.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "latticedb_bufferpool_evictions_total",
			Help: "Frames reclaimed via the LRU-K replacer.",
		}),
		diskReads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "latticedb_bufferpool_disk_reads_total",
			Help: "DiskManager.ReadPage calls.",
		}),
		diskWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "latticedb_bufferpool_disk_writes_total",
			Help: "DiskManager.WritePage calls, including write-back on eviction.",
		}),
		pagesAllocated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "latticedb_bufferpool_pages_allocated_total",
			Help: "NewPage calls.",
		}),
	}
}

// Collectors returns every collector so a caller can register them in
// bulk: reg.MustRegister(pool.Metrics().Collectors()...).
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.hits, m.misses, m.evictions, m.diskReads, m.diskWrites, m.pagesAllocated,
	}
}
