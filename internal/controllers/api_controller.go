package controllers

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"netguard/internal/models"
	"netguard/internal/monitor/interfaces"
	"netguard/internal/providers"
	"netguard/internal/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger    providers.Logger
	registry  services.DeviceRegistryInterface
	usage     services.UsageServiceInterface
	policy    services.PolicyServiceInterface
	scheduler interfaces.SchedulerInterface
	cache     providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, registry services.DeviceRegistryInterface, usage services.UsageServiceInterface, policy services.PolicyServiceInterface, scheduler interfaces.SchedulerInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:    logger,
		registry:  registry,
		usage:     usage,
		policy:    policy,
		scheduler: scheduler,
		cache:     cache,
	}
}

func getDevice(r *http.Request) string {
	return r.URL.Query().Get("d")
}

func getDays(r *http.Request) int {
	days := cast.ToInt(r.URL.Query().Get("days"))
	if days < 1 {
		return 1
	}
	return days
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrDeviceNotFound):
		http.Error(w, "Device Not Found", http.StatusNotFound)
	case errors.Is(err, models.ErrValidation):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	case errors.Is(err, models.ErrQueueFull):
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, models.ErrNotBlocked):
		http.Error(w, "Conflict", http.StatusConflict)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	gson, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		writeError(w, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var payload models.DeviceInfo
	if !decodeBody(w, r, &payload) {
		return
	}

	id, err := ac.registry.Register(payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"device_id": id})
}

type blockDeviceRequest struct {
	DeviceID        string `json:"device_id"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// BlockDevice enqueues the block; the next scheduler tick applies it.
func (ac *ApiController) BlockDevice(w http.ResponseWriter, r *http.Request) {
	var payload blockDeviceRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	err := ac.scheduler.EnqueueCommand(models.PendingCommand{
		Action:   models.ActionBlock,
		DeviceID: payload.DeviceID,
		Duration: time.Duration(payload.DurationSeconds) * time.Second,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type unblockDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

func (ac *ApiController) UnblockDevice(w http.ResponseWriter, r *http.Request) {
	var payload unblockDeviceRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	err := ac.scheduler.EnqueueCommand(models.PendingCommand{
		Action:   models.ActionUnblock,
		DeviceID: payload.DeviceID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type setLimitRequest struct {
	DeviceID     string `json:"device_id"`
	DailyLimitMB int    `json:"daily_limit_mb"`
	ThresholdPct int    `json:"notification_threshold"`
}

func (ac *ApiController) SetDailyLimit(w http.ResponseWriter, r *http.Request) {
	var payload setLimitRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	err := ac.scheduler.EnqueueCommand(models.PendingCommand{
		Action:       models.ActionSetLimit,
		DeviceID:     payload.DeviceID,
		LimitMB:      payload.DailyLimitMB,
		ThresholdPct: payload.ThresholdPct,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type restrictionsRequest struct {
	DeviceID   string   `json:"device_id"`
	Categories []string `json:"categories"`
}

func (ac *ApiController) SetRestrictions(w http.ResponseWriter, r *http.Request) {
	var payload restrictionsRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	if err := ac.registry.SetRestrictions(payload.DeviceID, payload.Categories); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type bindInterfaceRequest struct {
	Interface string `json:"interface"`
	DeviceID  string `json:"device_id"`
}

func (ac *ApiController) BindInterface(w http.ResponseWriter, r *http.Request) {
	var payload bindInterfaceRequest
	if !decodeBody(w, r, &payload) {
		return
	}
	if payload.Interface == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := ac.registry.BindInterface(payload.Interface, payload.DeviceID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type blockSiteRequest struct {
	Domain string `json:"domain"`
	Reason string `json:"reason"`
}

func (ac *ApiController) BlockSite(w http.ResponseWriter, r *http.Request) {
	var payload blockSiteRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	if err := ac.policy.BlockDomain(payload.Domain, payload.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type unblockSiteRequest struct {
	Domain string `json:"domain"`
}

func (ac *ApiController) UnblockSite(w http.ResponseWriter, r *http.Request) {
	var payload unblockSiteRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	if err := ac.policy.UnblockDomain(payload.Domain); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type setCategoryRequest struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
}

func (ac *ApiController) SetSiteCategory(w http.ResponseWriter, r *http.Request) {
	var payload setCategoryRequest
	if !decodeBody(w, r, &payload) {
		return
	}

	if err := ac.policy.SetDomainCategory(payload.Domain, payload.Category); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type deviceStatusResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	LastSeen     time.Time `json:"last_seen"`
	Restrictions []string  `json:"restrictions"`
	BlockExpires time.Time `json:"block_expires"`
	SessionSent  uint64    `json:"session_bytes_sent"`
	SessionRecv  uint64    `json:"session_bytes_received"`
}

func (ac *ApiController) GetDeviceStatus(w http.ResponseWriter, r *http.Request) {
	id := models.NormalizeDeviceID(getDevice(r))
	ac.serveFromCacheOrCompute(w, "status:"+id, func() (any, error) {
		device, ok := ac.registry.Get(id)
		if !ok {
			return nil, models.ErrDeviceNotFound
		}

		resp := deviceStatusResponse{
			ID:           device.ID,
			Name:         device.Name,
			Type:         device.Type,
			Status:       string(device.Status),
			LastSeen:     device.LastSeen,
			BlockExpires: device.BlockExpires,
			Restrictions: make([]string, 0, len(device.Restrictions)),
		}
		for c := range device.Restrictions {
			resp.Restrictions = append(resp.Restrictions, c)
		}
		if counters, ok := ac.usage.LiveCounters(id); ok {
			resp.SessionSent = counters.BytesSent
			resp.SessionRecv = counters.BytesReceived
		}
		return resp, nil
	})
}

func (ac *ApiController) GetDevices(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "devices", func() (any, error) {
		return ac.registry.Snapshot(), nil
	})
}

func (ac *ApiController) GetUsageReport(w http.ResponseWriter, r *http.Request) {
	id := models.NormalizeDeviceID(getDevice(r))
	days := getDays(r)
	ac.serveFromCacheOrCompute(w, "report:"+id+":"+cast.ToString(days), func() (any, error) {
		return ac.usage.GetUsageReport(id, days)
	})
}

func (ac *ApiController) GetAccessHistory(w http.ResponseWriter, r *http.Request) {
	id := models.NormalizeDeviceID(getDevice(r))
	days := getDays(r)
	ac.serveFromCacheOrCompute(w, "history:"+id+":"+cast.ToString(days), func() (any, error) {
		return ac.policy.GetAccessHistory(id, days)
	})
}

func (ac *ApiController) GetBlockedSites(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "blocked_sites", func() (any, error) {
		return ac.policy.BlockedSites(), nil
	})
}
