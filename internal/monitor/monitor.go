// Package monitor is an ambient, opt-in request/response audit log. It is
// disabled by default and never becomes the source of truth for account
// state, which stays in-process memory per the account store's design.
package monitor

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurora-relay/gateway/internal/util"
)

const (
	// MaxMemoryLogs bounds the in-memory ring of recent entries.
	MaxMemoryLogs = 100
	// MaxErrorLen truncates the stored error string.
	MaxErrorLen = 4096
)

// Monitor records proxied request/response metadata to sqlite and keeps a
// small in-memory ring of the most recent entries for a fast dashboard read.
type Monitor struct {
	db      *gorm.DB
	enabled atomic.Bool

	recentLogs []RequestLog
	logsMu     sync.RWMutex

	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
}

// New builds a Monitor over db, disabled until SetEnabled(true) is called.
func New(db *gorm.DB) *Monitor {
	m := &Monitor{
		db:         db,
		recentLogs: make([]RequestLog, 0, MaxMemoryLogs),
	}
	m.loadStatsFromDB()
	return m
}

// SetEnabled turns logging on or off.
func (m *Monitor) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// IsEnabled reports whether logging is currently on.
func (m *Monitor) IsEnabled() bool {
	return m.enabled.Load()
}

// LogRequest records one proxied request. It is a no-op when disabled and
// otherwise updates in-memory stats synchronously, then persists async.
func (m *Monitor) LogRequest(entry RequestLog) {
	if !m.IsEnabled() {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().UnixMilli()
	}
	entry.Error = util.TruncateLog(entry.Error, MaxErrorLen)

	m.totalRequests.Add(1)
	if entry.Status >= 200 && entry.Status < 400 {
		m.successCount.Add(1)
	} else {
		m.errorCount.Add(1)
	}

	m.logsMu.Lock()
	m.recentLogs = append([]RequestLog{entry}, m.recentLogs...)
	if len(m.recentLogs) > MaxMemoryLogs {
		m.recentLogs = m.recentLogs[:MaxMemoryLogs]
	}
	m.logsMu.Unlock()

	go func(e RequestLog) {
		if err := m.db.Create(&e).Error; err != nil {
			log.Printf("monitor: failed to persist log: %v", err)
		}
	}(entry)
}

// RecentLogs returns up to limit of the most recently logged entries.
func (m *Monitor) RecentLogs(limit int) []RequestLog {
	if limit <= 0 {
		limit = 100
	}

	var logs []RequestLog
	if err := m.db.Order("timestamp DESC").Limit(limit).Find(&logs).Error; err != nil {
		log.Printf("monitor: failed to read logs from db: %v", err)
		m.logsMu.RLock()
		defer m.logsMu.RUnlock()
		if limit > len(m.recentLogs) {
			limit = len(m.recentLogs)
		}
		return append([]RequestLog(nil), m.recentLogs[:limit]...)
	}
	return logs
}

// Stats returns the current aggregate counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		TotalRequests: m.totalRequests.Load(),
		SuccessCount:  m.successCount.Load(),
		ErrorCount:    m.errorCount.Load(),
	}
}

// Clear removes every logged entry, from memory and from disk.
func (m *Monitor) Clear() error {
	m.logsMu.Lock()
	m.recentLogs = m.recentLogs[:0]
	m.logsMu.Unlock()

	m.totalRequests.Store(0)
	m.successCount.Store(0)
	m.errorCount.Store(0)

	return m.db.Exec("DELETE FROM request_logs").Error
}

func (m *Monitor) loadStatsFromDB() {
	var total, success, errored int64
	m.db.Model(&RequestLog{}).Count(&total)
	m.db.Model(&RequestLog{}).Where("status >= 200 AND status < 400").Count(&success)
	m.db.Model(&RequestLog{}).Where("status < 200 OR status >= 400").Count(&errored)

	m.totalRequests.Store(total)
	m.successCount.Store(success)
	m.errorCount.Store(errored)
}
