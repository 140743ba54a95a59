package health

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the overall health of the application
type HealthStatus struct {
	Status    string                     `json:"status"`
	Timestamp time.Time                  `json:"timestamp"`
	Version   string                     `json:"version"`
	Checks    map[string]ComponentHealth `json:"checks"`
	Uptime    int64                      `json:"uptimeSeconds"`
	Duration  int64                      `json:"durationMs"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Healthy   bool        `json:"healthy"`
	LatencyMs int64       `json:"latencyMs"`
	Details   interface{} `json:"details,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// SystemMetrics captures current system metrics
type SystemMetrics struct {
	MemoryUsageMB  uint64 `json:"memoryUsageMb"`
	GoroutineCount int    `json:"goroutineCount"`
	CPUNumCores    int    `json:"cpuNumCores"`
	NumGC          uint32 `json:"numGc"`
	Uptime         int64  `json:"uptimeSeconds"`
}

// Pinger is an optional dependency checked alongside the database.
// Optional dependencies only degrade the status.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker provides health check functionality
type HealthChecker struct {
	db        *gorm.DB
	version   string
	startTime time.Time
	optional  map[string]Pinger

	mu              sync.RWMutex
	lastCheckStatus string
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db *gorm.DB, version string) *HealthChecker {
	return &HealthChecker{
		db:        db,
		version:   version,
		startTime: time.Now(),
		optional:  make(map[string]Pinger),
	}
}

// AddCheck registers an optional dependency under name.
func (hc *HealthChecker) AddCheck(name string, p Pinger) {
	hc.optional[name] = p
}

// Check performs a complete health check
func (hc *HealthChecker) Check(ctx context.Context) HealthStatus {
	start := time.Now()
	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: start.UTC(),
		Version:   hc.version,
		Checks:    make(map[string]ComponentHealth),
		Uptime:    int64(time.Since(hc.startTime).Seconds()),
	}

	db := hc.checkDatabase(ctx)
	status.Checks["database"] = db
	if !db.Healthy {
		status.Status = StatusUnhealthy
	}

	names := make([]string, 0, len(hc.optional))
	for name := range hc.optional {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		check := ping(ctx, hc.optional[name])
		status.Checks[name] = check
		if !check.Healthy && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	status.Duration = time.Since(start).Milliseconds()

	hc.mu.Lock()
	hc.lastCheckStatus = status.Status
	hc.mu.Unlock()

	return status
}

// checkDatabase verifies database connectivity and reports pool stats
func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentHealth {
	if hc.db == nil {
		return ComponentHealth{Error: "database not initialized"}
	}

	start := time.Now()
	sqlDB, err := hc.db.DB()
	if err != nil {
		return ComponentHealth{Error: "failed to get database connection: " + err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return ComponentHealth{Error: "database ping failed: " + err.Error()}
	}

	stats := sqlDB.Stats()
	return ComponentHealth{
		Healthy:   true,
		LatencyMs: time.Since(start).Milliseconds(),
		Details: map[string]interface{}{
			"openConnections": stats.OpenConnections,
			"inUse":           stats.InUse,
			"idle":            stats.Idle,
			"waitCount":       stats.WaitCount,
		},
	}
}

func ping(ctx context.Context, p Pinger) ComponentHealth {
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return ComponentHealth{LatencyMs: time.Since(start).Milliseconds(), Error: err.Error()}
	}
	return ComponentHealth{Healthy: true, LatencyMs: time.Since(start).Milliseconds()}
}

// IsHealthy returns true if the last check was healthy
func (hc *HealthChecker) IsHealthy() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.lastCheckStatus == StatusHealthy
}

// IsReady returns true if system is ready to serve traffic
func (hc *HealthChecker) IsReady(ctx context.Context) bool {
	return hc.checkDatabase(ctx).Healthy
}

// IsAlive returns true if system is running
func (hc *HealthChecker) IsAlive() bool {
	return true
}

// GetMetrics returns current system metrics
func (hc *HealthChecker) GetMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		MemoryUsageMB:  m.Alloc / 1024 / 1024,
		GoroutineCount: runtime.NumGoroutine(),
		CPUNumCores:    runtime.NumCPU(),
		NumGC:          m.NumGC,
		Uptime:         int64(time.Since(hc.startTime).Seconds()),
	}
}
