package metrics

import (
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterRedis exposes the connection pool statistics of a redis client.
func (m *Metrics) RegisterRedis(subsystem, role string, c *redis.Client) error {
	return m.registry.Register(newRedisCollector(subsystem, role, c))
}

type redisCollector struct {
	c *redis.Client

	hits       *prometheus.Desc
	misses     *prometheus.Desc
	timeouts   *prometheus.Desc
	totalConns *prometheus.Desc
	idleConns  *prometheus.Desc
	staleConns *prometheus.Desc
}

func newRedisCollector(subsystem, role string, c *redis.Client) *redisCollector {
	labels := prometheus.Labels{"role": role}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(Namespace, subsystem, name), help, nil, labels)
	}

	return &redisCollector{
		c:          c,
		hits:       desc("pool_hits_total", "Free connections found in the pool"),
		misses:     desc("pool_misses_total", "Free connections not found in the pool"),
		timeouts:   desc("pool_timeouts_total", "Wait timeouts"),
		totalConns: desc("pool_conns", "Connections in the pool"),
		idleConns:  desc("pool_idle_conns", "Idle connections in the pool"),
		staleConns: desc("pool_stale_conns_total", "Stale connections removed from the pool"),
	}
}

func (rc *redisCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- rc.hits
	ch <- rc.misses
	ch <- rc.timeouts
	ch <- rc.totalConns
	ch <- rc.idleConns
	ch <- rc.staleConns
}

func (rc *redisCollector) Collect(ch chan<- prometheus.Metric) {
	st := rc.c.PoolStats()
	ch <- prometheus.MustNewConstMetric(rc.hits, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(rc.misses, prometheus.CounterValue, float64(st.Misses))
	ch <- prometheus.MustNewConstMetric(rc.timeouts, prometheus.CounterValue, float64(st.Timeouts))
	ch <- prometheus.MustNewConstMetric(rc.totalConns, prometheus.GaugeValue, float64(st.TotalConns))
	ch <- prometheus.MustNewConstMetric(rc.idleConns, prometheus.GaugeValue, float64(st.IdleConns))
	ch <- prometheus.MustNewConstMetric(rc.staleConns, prometheus.CounterValue, float64(st.StaleConns))
}
