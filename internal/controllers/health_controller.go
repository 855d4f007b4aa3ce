package controllers

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"netguard/internal/monitor/interfaces"
	"netguard/internal/services"
)

type HealthController struct {
	registry  services.DeviceRegistryInterface
	usage     services.UsageServiceInterface
	scheduler interfaces.SchedulerInterface
	startTime time.Time
}

type healthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Devices       map[string]int `json:"devices"`
	LiveSessions  int            `json:"live_sessions"`
	QueueDepth    int            `json:"queue_depth"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	devices := make(map[string]int)
	for status, count := range hc.registry.CountByStatus() {
		devices[string(status)] = count
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Devices:       devices,
		LiveSessions:  hc.usage.SessionCount(),
		QueueDepth:    hc.scheduler.QueueDepth(),
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(registry services.DeviceRegistryInterface, usage services.UsageServiceInterface, scheduler interfaces.SchedulerInterface) *HealthController {
	return &HealthController{
		registry:  registry,
		usage:     usage,
		scheduler: scheduler,
		startTime: time.Now(),
	}
}
