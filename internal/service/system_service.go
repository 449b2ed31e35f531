package service

import (
	"context"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/YassinSultan/CoreSystem-Backend/pkg/logger"
)

// SystemStatus is the operational snapshot returned by the admin status
// endpoint.
type SystemStatus struct {
	UptimeSeconds  int64   `json:"uptimeSeconds"`
	GoVersion      string  `json:"goVersion"`
	Goroutines     int     `json:"goroutines"`
	CPUPercent     float64 `json:"cpuPercent"`
	MemoryPercent  float64 `json:"memoryPercent"`
	MemoryUsedMB   uint64  `json:"memoryUsedMb"`
	DiskPercent    float64 `json:"diskPercent"`
	DiskFreeGB     uint64  `json:"diskFreeGb"`
	DatabaseOK     bool    `json:"databaseOk"`
	DatabasePingMS int64   `json:"databasePingMs"`
	AcquiredConns  int32   `json:"acquiredConns"`
	TotalConns     int32   `json:"totalConns"`
}

type SystemService struct {
	pool      *pgxpool.Pool
	logStore  *logger.Store
	startedAt time.Time
}

func NewSystemService(pool *pgxpool.Pool, logStore *logger.Store) *SystemService {
	return &SystemService{pool: pool, logStore: logStore, startedAt: time.Now()}
}

// Status gathers host and pool metrics. Collection failures zero the affected
// figures instead of failing the whole call.
func (s *SystemService) Status(ctx context.Context) *SystemStatus {
	status := &SystemStatus{
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
	}

	if values, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false); err == nil && len(values) > 0 {
		status.CPUPercent = values[0]
	}
	if stat, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.MemoryPercent = stat.UsedPercent
		status.MemoryUsedMB = stat.Used / (1 << 20)
	}
	if stat, err := disk.UsageWithContext(ctx, "/"); err == nil {
		status.DiskPercent = stat.UsedPercent
		status.DiskFreeGB = stat.Free / (1 << 30)
	}

	if s.pool != nil {
		start := time.Now()
		if err := s.pool.Ping(ctx); err == nil {
			status.DatabaseOK = true
			status.DatabasePingMS = time.Since(start).Milliseconds()
		}
		stat := s.pool.Stat()
		status.AcquiredConns = stat.AcquiredConns()
		status.TotalConns = stat.TotalConns()
	}
	return status
}

// Logs returns buffered log entries, newest first.
func (s *SystemService) Logs(level, keyword string, limit int) []logger.Entry {
	if s.logStore == nil {
		return nil
	}
	return s.logStore.Query(level, keyword, limit)
}
