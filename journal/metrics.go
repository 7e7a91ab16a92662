package journal

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blocknative/walletprovider/metrics"
)

type JournalMetrics struct {
	Records *prometheus.CounterVec
}

func (j *Journal) initMetrics() {
	j.m.Records = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletprovider",
		Subsystem: "journal",
		Name:      "records",
		Help:      "Number of signed transactions written to the journal",
	}, []string{"result"})
}

func (j *Journal) AttachMetrics(m *metrics.Metrics) {
	m.Register(j.m.Records)
}

// InitBadgerMetrics exposes the badger expvar counters.
func InitBadgerMetrics(m *metrics.Metrics) error {
	return m.RegisterExpvar(map[string]*prometheus.Desc{
		"badger_v2_blocked_puts_total":   prometheus.NewDesc("badger_blocked_puts_total", "Blocked Puts", nil, nil),
		"badger_v2_disk_reads_total":     prometheus.NewDesc("badger_disk_reads_total", "Disk Reads", nil, nil),
		"badger_v2_disk_writes_total":    prometheus.NewDesc("badger_disk_writes_total", "Disk Writes", nil, nil),
		"badger_v2_gets_total":           prometheus.NewDesc("badger_gets_total", "Gets", nil, nil),
		"badger_v2_puts_total":           prometheus.NewDesc("badger_puts_total", "Puts", nil, nil),
		"badger_v2_lsm_size_bytes":       prometheus.NewDesc("badger_lsm_size_bytes", "LSM Size in bytes", []string{"database"}, nil),
		"badger_v2_vlog_size_bytes":      prometheus.NewDesc("badger_vlog_size_bytes", "Value Log Size in bytes", []string{"database"}, nil),
		"badger_v2_pending_writes_total": prometheus.NewDesc("badger_pending_writes_total", "Pending Writes", []string{"database"}, nil),
	})
}
