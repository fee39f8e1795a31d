package app

import (
	"codelens/internal/shared/util"
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Engine     string            `json:"engine"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Engine:     s.app.ID,
		Components: make(map[string]string),
	}

	if s.app.Index == nil {
		status.Status = "degraded"
		status.Components["index"] = "missing"
		return status
	}

	stats := s.app.Index.Stats()
	status.Components["index"] = fmt.Sprintf("ok (%d files, %d types)", stats.Files, stats.Types)
	if len(stats.Failures) > 0 {
		status.Status = "degraded"
		status.Components["parse_failures"] = fmt.Sprintf("%d files failed to parse", len(stats.Failures))
	}

	status.Components["symbol_store"] = s.app.Config.Index.Store

	status.Components["parser"] = fmt.Sprintf("ok (%d leased)", s.app.Index.Parser().Pool().Leased())
	status.Components["heap"] = fmt.Sprintf("%d MB", util.HeapAllocMB())

	s.app.watchMu.Lock()
	watching := s.app.activeWatcher != nil
	s.app.watchMu.Unlock()
	if watching {
		status.Components["watcher"] = "running"
	} else {
		status.Components["watcher"] = "disabled"
	}
	return status
}

// Healthy adapts Check to the observability server's health probe.
func (s *HealthService) Healthy(ctx context.Context) (any, bool) {
	status := s.Check(ctx)
	return status, status.Status == "up"
}
