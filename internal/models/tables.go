package models

import "time"

// UsageRow is one flushed session interval (table usage_data).
type UsageRow struct {
	DeviceID      string    `json:"device_id"`
	Timestamp     time.Time `json:"timestamp"`
	BytesSent     uint64    `json:"bytes_sent"`
	BytesReceived uint64    `json:"bytes_received"`
	Duration      int64     `json:"duration"`
}

// SummaryRow is the daily rollup (table daily_summary, unique device+date).
// Totals are only ever incremented, never overwritten.
type SummaryRow struct {
	DeviceID   string `json:"device_id"`
	Date       string `json:"date"`
	TotalBytes uint64 `json:"total_bytes"`
	TotalTime  int64  `json:"total_time"`
}

// DateLayout is the canonical calendar-day format used in summary keys.
const DateLayout = "2006-01-02"

// SummaryKey builds the unique (device_id, date) key for daily_summary.
func SummaryKey(deviceID, date string) string {
	return deviceID + "|" + date
}

// LimitRow is a persisted quota (table device_limits).
type LimitRow struct {
	DeviceID     string `json:"device_id"`
	DailyLimitMB int    `json:"daily_limit"`
	ThresholdPct int    `json:"notification_threshold"`
}

// AccessRow is one access-log entry (table website_access, append-only).
type AccessRow struct {
	DeviceID  string         `json:"device_id"`
	URL       string         `json:"url"`
	Domain    string         `json:"domain"`
	Category  string         `json:"category"`
	Decision  AccessDecision `json:"decision"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  int64          `json:"duration"`
}

// BlockedSiteRow is a global domain block (table blocked_sites).
type BlockedSiteRow struct {
	Domain   string    `json:"domain"`
	Category string    `json:"category"`
	Reason   string    `json:"reason"`
	AddedAt  time.Time `json:"added_date"`
}

// CategoryRow maps a domain to its classification (table website_categories).
type CategoryRow struct {
	Domain      string    `json:"domain"`
	Category    string    `json:"category"`
	LastUpdated time.Time `json:"last_updated"`
}

// Tables is the in-memory image of the durable state. One versioned envelope
// holds every table; commits replace the whole set atomically.
type Tables struct {
	UsageData     []UsageRow                 `json:"usage_data"`
	DailySummary  map[string]*SummaryRow     `json:"daily_summary"`
	DeviceLimits  map[string]*LimitRow       `json:"device_limits"`
	WebsiteAccess []AccessRow                `json:"website_access"`
	BlockedSites  map[string]*BlockedSiteRow `json:"blocked_sites"`
	Categories    map[string]*CategoryRow    `json:"website_categories"`
}

func NewTables() *Tables {
	return &Tables{
		UsageData:     make([]UsageRow, 0),
		DailySummary:  make(map[string]*SummaryRow),
		DeviceLimits:  make(map[string]*LimitRow),
		WebsiteAccess: make([]AccessRow, 0),
		BlockedSites:  make(map[string]*BlockedSiteRow),
		Categories:    make(map[string]*CategoryRow),
	}
}

// Clone deep-copies the table set. Commits mutate a clone and swap it in
// only after the file write succeeds.
func (t *Tables) Clone() *Tables {
	c := &Tables{
		UsageData:     make([]UsageRow, len(t.UsageData)),
		DailySummary:  make(map[string]*SummaryRow, len(t.DailySummary)),
		DeviceLimits:  make(map[string]*LimitRow, len(t.DeviceLimits)),
		WebsiteAccess: make([]AccessRow, len(t.WebsiteAccess)),
		BlockedSites:  make(map[string]*BlockedSiteRow, len(t.BlockedSites)),
		Categories:    make(map[string]*CategoryRow, len(t.Categories)),
	}
	copy(c.UsageData, t.UsageData)
	copy(c.WebsiteAccess, t.WebsiteAccess)
	for k, v := range t.DailySummary {
		row := *v
		c.DailySummary[k] = &row
	}
	for k, v := range t.DeviceLimits {
		row := *v
		c.DeviceLimits[k] = &row
	}
	for k, v := range t.BlockedSites {
		row := *v
		c.BlockedSites[k] = &row
	}
	for k, v := range t.Categories {
		row := *v
		c.Categories[k] = &row
	}
	return c
}

// StorageV1 is the persistence envelope with an explicit version field.
type StorageV1 struct {
	Version int     `json:"version"`
	Tables  *Tables `json:"tables"`
}

const StorageVersion = 1
