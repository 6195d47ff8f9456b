package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/home"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Scripts       ScriptMetrics   `json:"scripts"`
	Entities      EntityMetrics   `json:"entities"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Enabled       bool `json:"enabled"`
	Connected     bool `json:"connected"`
	Subscriptions int  `json:"subscriptions"`
}

// ScriptMetrics contains script catalogue statistics.
type ScriptMetrics struct {
	Providers  []string       `json:"providers"`
	Sources    int            `json:"sources"`
	ByProvider map[string]int `json:"by_provider"`
	Bindings   int            `json:"bindings"`
}

// EntityMetrics contains entity counts.
type EntityMetrics struct {
	Total      int            `json:"total"`
	ByType     map[string]int `json:"by_type"`
	WithScript int            `json:"with_script"`
	ByState    map[string]int `json:"by_script_state"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Enabled:       true,
			Connected:     s.mqtt.IsConnected(),
			Subscriptions: s.mqtt.SubscriptionCount(),
		}
	}

	sources := s.scripts.Sources()
	metrics.Scripts = ScriptMetrics{
		Providers:  s.scripts.Providers(),
		Sources:    len(sources),
		ByProvider: make(map[string]int),
		Bindings:   s.bindings.len(),
	}
	for _, src := range sources {
		metrics.Scripts.ByProvider[src.Provider]++
	}

	metrics.Entities = EntityMetrics{
		ByType:  make(map[string]int),
		ByState: make(map[string]int),
	}
	for _, t := range home.Types {
		entities := s.home.Entities(t)
		metrics.Entities.ByType[t.String()] = len(entities)
		metrics.Entities.Total += len(entities)
		for _, e := range entities {
			if sc := e.Script(); sc != nil {
				metrics.Entities.WithScript++
				metrics.Entities.ByState[sc.State().String()]++
			}
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
