package services

import (
	"fmt"
	"sync"
	"time"

	"netguard/internal/models"
	"netguard/internal/providers"
)

const (
	defaultThresholdPct = 90
	bytesPerMB          = 1024 * 1024
)

type UsageServiceInterface interface {
	Sample(snapshot map[string]models.InterfaceCounters, now time.Time)
	CheckLimits(now time.Time) []models.Event
	Flush(now time.Time) error
	SetLimit(deviceID string, limitMB, thresholdPct int) error
	ReloadLimits()
	LiveCounters(deviceID string) (models.UsageCounters, bool)
	SessionCount() int
	GetUsageReport(deviceID string, days int) (*models.UsageReport, error)
}

type limitState struct {
	limitMB        int
	thresholdPct   int
	limitFired     bool
	thresholdFired bool
	firedDay       string
}

// UsageService accumulates per-device byte counters between flushes and
// turns them into durable daily summaries. One mutex serializes the
// sampling tick, limit checks, flushes and caller queries.
type UsageService struct {
	logger   providers.Logger
	registry DeviceRegistryInterface
	store    StoreInterface

	mu       sync.Mutex
	sessions map[string]*models.UsageCounters
	lastRaw  map[string]models.InterfaceCounters
	limits   map[string]*limitState
}

func NewUsageService(logger providers.Logger, registry DeviceRegistryInterface, store StoreInterface) UsageServiceInterface {
	return &UsageService{
		logger:   logger,
		registry: registry,
		store:    store,
		sessions: make(map[string]*models.UsageCounters),
		lastRaw:  make(map[string]models.InterfaceCounters),
		limits:   make(map[string]*limitState),
	}
}

// Sample folds one telemetry snapshot into the live sessions. The first
// reading for an interface only establishes the baseline. A raw reading
// below the previous one means the interface counter reset; the reading
// itself is then the delta, so deltas are never negative.
func (us *UsageService) Sample(snapshot map[string]models.InterfaceCounters, now time.Time) {
	us.mu.Lock()
	defer us.mu.Unlock()

	for iface, counters := range snapshot {
		deviceID, ok := us.registry.DeviceForInterface(iface)
		if !ok {
			continue
		}

		last, seen := us.lastRaw[iface]
		us.lastRaw[iface] = counters
		if !seen {
			us.sessionLocked(deviceID, now)
			continue
		}

		sentDelta := counters.BytesSent
		if counters.BytesSent >= last.BytesSent {
			sentDelta = counters.BytesSent - last.BytesSent
		}
		recvDelta := counters.BytesReceived
		if counters.BytesReceived >= last.BytesReceived {
			recvDelta = counters.BytesReceived - last.BytesReceived
		}

		sess := us.sessionLocked(deviceID, now)
		sess.BytesSent += sentDelta
		sess.BytesReceived += recvDelta
		sess.LastUpdate = now
	}
}

func (us *UsageService) sessionLocked(deviceID string, now time.Time) *models.UsageCounters {
	sess, ok := us.sessions[deviceID]
	if !ok {
		sess = &models.UsageCounters{SessionStart: now}
		us.sessions[deviceID] = sess
	}
	return sess
}

// CheckLimits evaluates every configured quota against today's total
// (flushed summary plus live session). Each condition fires at most once
// per device per day; the flags reset at day rollover.
func (us *UsageService) CheckLimits(now time.Time) []models.Event {
	us.mu.Lock()
	defer us.mu.Unlock()

	day := now.Format(models.DateLayout)
	var events []models.Event

	for deviceID, st := range us.limits {
		if st.limitMB <= 0 {
			continue
		}
		if st.firedDay != day {
			st.firedDay = day
			st.limitFired = false
			st.thresholdFired = false
		}

		totalBytes := us.store.DailyTotal(deviceID, day)
		if sess, ok := us.sessions[deviceID]; ok {
			totalBytes += sess.TotalBytes()
		}
		totalMB := float64(totalBytes) / bytesPerMB
		limitMB := float64(st.limitMB)

		if totalMB >= limitMB && !st.limitFired {
			st.limitFired = true
			// The limit event supersedes a pending threshold warning.
			st.thresholdFired = true
			events = append(events, models.Event{
				Kind:      models.EventLimitExceeded,
				DeviceID:  deviceID,
				UsageMB:   totalMB,
				LimitMB:   limitMB,
				Timestamp: now,
			})
		} else if totalMB/limitMB*100 >= float64(st.thresholdPct) && !st.thresholdFired {
			st.thresholdFired = true
			events = append(events, models.Event{
				Kind:      models.EventThresholdReached,
				DeviceID:  deviceID,
				UsageMB:   totalMB,
				LimitMB:   limitMB,
				Timestamp: now,
			})
		}
	}
	return events
}

// Flush commits every non-empty session as one usage row plus its daily
// summary increment, then starts fresh sessions. A failed commit leaves
// the sessions untouched so the next flush retries; nothing is lost and
// nothing is double-counted.
func (us *UsageService) Flush(now time.Time) error {
	us.mu.Lock()
	defer us.mu.Unlock()

	rows := make([]models.UsageRow, 0, len(us.sessions))
	flushed := make([]string, 0, len(us.sessions))
	for deviceID, sess := range us.sessions {
		if sess.LastUpdate.IsZero() {
			continue
		}
		rows = append(rows, models.UsageRow{
			DeviceID:      deviceID,
			Timestamp:     now,
			BytesSent:     sess.BytesSent,
			BytesReceived: sess.BytesReceived,
			Duration:      int64(now.Sub(sess.SessionStart).Seconds()),
		})
		flushed = append(flushed, deviceID)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := us.store.CommitUsage(rows); err != nil {
		us.logger.Errorf(providers.TypeApp, "Usage flush failed, keeping sessions for retry: %s", err)
		return err
	}

	for _, deviceID := range flushed {
		us.sessions[deviceID] = &models.UsageCounters{SessionStart: now}
	}
	return nil
}

// SetLimit stores the quota durably and resets today's fired flags: a
// changed quota is evaluated from scratch on the next tick.
func (us *UsageService) SetLimit(deviceID string, limitMB, thresholdPct int) error {
	id := models.NormalizeDeviceID(deviceID)
	if _, ok := us.registry.Get(id); !ok {
		return fmt.Errorf("%w: %s", models.ErrDeviceNotFound, deviceID)
	}
	if limitMB <= 0 {
		return fmt.Errorf("%w: daily limit must be positive", models.ErrValidation)
	}
	if thresholdPct == 0 {
		thresholdPct = defaultThresholdPct
	}
	if thresholdPct < 1 || thresholdPct > 100 {
		return fmt.Errorf("%w: threshold must be within 1..100", models.ErrValidation)
	}

	err := us.store.PutLimit(models.LimitRow{
		DeviceID:     id,
		DailyLimitMB: limitMB,
		ThresholdPct: thresholdPct,
	})
	if err != nil {
		return err
	}

	us.mu.Lock()
	defer us.mu.Unlock()
	us.limits[id] = &limitState{limitMB: limitMB, thresholdPct: thresholdPct}
	us.logger.Infof(providers.TypeApp, "Set daily limit for %s: %dMB, threshold %d%%", id, limitMB, thresholdPct)
	return nil
}

// ReloadLimits rebuilds the in-memory quota table from the store. Fired
// flags start clean; at worst an event repeats once after a restart.
func (us *UsageService) ReloadLimits() {
	rows := us.store.Limits()

	us.mu.Lock()
	defer us.mu.Unlock()

	us.limits = make(map[string]*limitState, len(rows))
	for _, row := range rows {
		us.limits[row.DeviceID] = &limitState{
			limitMB:      row.DailyLimitMB,
			thresholdPct: row.ThresholdPct,
		}
	}
}

func (us *UsageService) LiveCounters(deviceID string) (models.UsageCounters, bool) {
	us.mu.Lock()
	defer us.mu.Unlock()
	sess, ok := us.sessions[models.NormalizeDeviceID(deviceID)]
	if !ok {
		return models.UsageCounters{}, false
	}
	return *sess, true
}

func (us *UsageService) SessionCount() int {
	us.mu.Lock()
	defer us.mu.Unlock()
	return len(us.sessions)
}

// GetUsageReport builds the per-day rollup for the device over the last
// N calendar days, newest first.
func (us *UsageService) GetUsageReport(deviceID string, days int) (*models.UsageReport, error) {
	id := models.NormalizeDeviceID(deviceID)
	if _, ok := us.registry.Get(id); !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrDeviceNotFound, deviceID)
	}
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be at least 1", models.ErrValidation)
	}

	end := time.Now()
	start := end.AddDate(0, 0, -(days - 1))
	report := &models.UsageReport{
		DeviceID:    id,
		PeriodStart: start.Format(models.DateLayout),
		PeriodEnd:   end.Format(models.DateLayout),
		DailyUsage:  make([]models.DailyUsage, 0, days),
	}

	for _, row := range us.store.Summaries(id, report.PeriodStart, report.PeriodEnd) {
		mb := float64(row.TotalBytes) / bytesPerMB
		hours := float64(row.TotalTime) / 3600
		report.DailyUsage = append(report.DailyUsage, models.DailyUsage{
			Date:       row.Date,
			TotalMB:    mb,
			TotalHours: hours,
		})
		report.TotalMB += mb
		report.TotalHours += hours
	}
	return report, nil
}
