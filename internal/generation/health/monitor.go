package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/infra/api/queue"
	"github.com/vietddude/genflow/internal/infra/api/quota"
	"github.com/vietddude/genflow/internal/infra/api/transport"
)

// Deps supplies the probes the monitor aggregates. Any nil func skips
// that component.
type Deps struct {
	QueueStats      func() queue.Stats
	TransportHealth func() transport.HealthStatus
	Usage           func() quota.UsageStats
	StorageCheck    func(ctx context.Context) error
	CacheCheck      func(ctx context.Context) error
}

// Monitor aggregates health status from the client's components.
type Monitor struct {
	deps Deps

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a new health monitor.
func NewMonitor(deps Deps) *Monitor {
	return &Monitor{deps: deps}
}

// CheckHealth builds a health report. Checks are rate limited to once
// per 10s; callers inside that window get the cached report.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 10*time.Second && len(m.lastReport.Components) > 0 {
		return m.lastReport
	}

	report := Report{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth),
	}

	add := func(c ComponentHealth) {
		report.Components[c.Name] = c
		if worse(c.Status, report.SystemStatus) {
			report.SystemStatus = c.Status
		}
	}

	if m.deps.TransportHealth != nil {
		add(checkTransport(m.deps.TransportHealth()))
	}
	if m.deps.QueueStats != nil {
		add(checkQueue(m.deps.QueueStats()))
	}
	if m.deps.Usage != nil {
		add(checkQuota(m.deps.Usage()))
	}
	if m.deps.StorageCheck != nil {
		add(checkPing(ctx, "storage", m.deps.StorageCheck))
	}
	if m.deps.CacheCheck != nil {
		add(checkPing(ctx, "cache", m.deps.CacheCheck))
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

func checkTransport(hs transport.HealthStatus) ComponentHealth {
	c := ComponentHealth{Name: "transport", Status: StatusHealthy}

	switch {
	case !hs.Available:
		c.Status = StatusCritical
		c.Message = "endpoint unavailable"
	case hs.MonitorStats != nil && hs.MonitorStats.Status == transport.StatusBlocked:
		c.Status = StatusCritical
		c.Message = "endpoint rejected credentials"
	case hs.MonitorStats != nil && hs.MonitorStats.Status == transport.StatusThrottled:
		c.Status = StatusDegraded
		c.Message = "endpoint is rate limiting"
	case hs.ErrorRate > 0.5:
		c.Status = StatusDegraded
		c.Message = fmt.Sprintf("error rate %.0f%%", hs.ErrorRate*100)
	}
	return c
}

func checkQueue(st queue.Stats) ComponentHealth {
	c := ComponentHealth{Name: "queue", Status: StatusHealthy}

	switch {
	case st.LongestWait > 5*time.Minute:
		c.Status = StatusCritical
		c.Message = fmt.Sprintf("oldest waiting request queued for %s", st.LongestWait.Round(time.Second))
	case st.Waiting > st.Limit*10:
		c.Status = StatusDegraded
		c.Message = fmt.Sprintf("%d requests waiting", st.Waiting)
	case st.LongestWait > time.Minute:
		c.Status = StatusDegraded
		c.Message = fmt.Sprintf("oldest waiting request queued for %s", st.LongestWait.Round(time.Second))
	}
	return c
}

func checkQuota(u quota.UsageStats) ComponentHealth {
	c := ComponentHealth{Name: "quota", Status: StatusHealthy}

	pct := u.UsagePercentage
	if u.SpendPercentage > pct {
		pct = u.SpendPercentage
	}

	switch {
	case pct >= 100:
		c.Status = StatusCritical
		c.Message = "daily budget exhausted"
	case pct >= 90:
		c.Status = StatusDegraded
		c.Message = fmt.Sprintf("budget %.0f%% consumed", pct)
	}
	return c
}

func checkPing(ctx context.Context, name string, ping func(ctx context.Context) error) ComponentHealth {
	c := ComponentHealth{Name: name, Status: StatusHealthy}

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := ping(pctx); err != nil {
		// Storage loss blocks persistence; cache loss just slows reads.
		if name == "storage" {
			c.Status = StatusCritical
		} else {
			c.Status = StatusDegraded
		}
		c.Message = err.Error()
	}
	return c
}
