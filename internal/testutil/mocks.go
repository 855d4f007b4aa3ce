package testutil

import (
	"sort"
	"sync"
	"time"

	"netguard/internal/models"
	"netguard/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// HasLevel reports whether at least one entry with the given level was recorded.
func (m *MockLogger) HasLevel(level string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level {
			return true
		}
	}
	return false
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu              sync.Mutex
	RequestsTotal   int
	CacheHits       int
	CacheMisses     int
	DeviceGauges    map[string]int
	EventKinds      map[string]int
	CommandsOK      int
	CommandsFailed  int
	AccessDecisions map[string]int
	QueueDepth      int
	Ticks           int
	Persists        int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		DeviceGauges:    make(map[string]int),
		EventKinds:      make(map[string]int),
		AccessDecisions: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestsTotal++
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) SetDevicesTotal(status string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeviceGauges[status] = count
}

func (m *MockMetrics) IncEventsEmitted(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventKinds[kind]++
}

func (m *MockMetrics) IncCommandsProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommandsOK++
}

func (m *MockMetrics) IncCommandsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommandsFailed++
}

func (m *MockMetrics) IncAccessDecisions(decision string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AccessDecisions[decision]++
}

func (m *MockMetrics) SetCommandQueueDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueueDepth = depth
}

func (m *MockMetrics) ObserveTickDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ticks++
}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persists++
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockStore implements services.StoreInterface in memory, with an
// injectable failure for exercising rollback paths.
type MockStore struct {
	mu        sync.Mutex
	FailWith  error
	UsageRows []models.UsageRow
	Summary   map[string]*models.SummaryRow
	LimitRows map[string]models.LimitRow
	Access    []models.AccessRow
	Blocked   map[string]models.BlockedSiteRow
	Cats      map[string]string
}

func NewMockStore() *MockStore {
	return &MockStore{
		Summary:   make(map[string]*models.SummaryRow),
		LimitRows: make(map[string]models.LimitRow),
		Blocked:   make(map[string]models.BlockedSiteRow),
		Cats:      make(map[string]string),
	}
}

func (m *MockStore) CommitUsage(rows []models.UsageRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.UsageRows = append(m.UsageRows, rows...)
	for _, row := range rows {
		date := row.Timestamp.Format(models.DateLayout)
		key := models.SummaryKey(row.DeviceID, date)
		sum, ok := m.Summary[key]
		if !ok {
			sum = &models.SummaryRow{DeviceID: row.DeviceID, Date: date}
			m.Summary[key] = sum
		}
		sum.TotalBytes += row.BytesSent + row.BytesReceived
		sum.TotalTime += row.Duration
	}
	return nil
}

func (m *MockStore) DailyTotal(deviceID, date string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sum, ok := m.Summary[models.SummaryKey(deviceID, date)]; ok {
		return sum.TotalBytes
	}
	return 0
}

func (m *MockStore) Summaries(deviceID, fromDate, toDate string) []models.SummaryRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SummaryRow
	for _, sum := range m.Summary {
		if sum.DeviceID == deviceID && sum.Date >= fromDate && sum.Date <= toDate {
			out = append(out, *sum)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func (m *MockStore) PutLimit(row models.LimitRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.LimitRows[row.DeviceID] = row
	return nil
}

func (m *MockStore) Limits() []models.LimitRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.LimitRow, 0, len(m.LimitRows))
	for _, row := range m.LimitRows {
		out = append(out, row)
	}
	return out
}

func (m *MockStore) AppendAccess(row models.AccessRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Access = append(m.Access, row)
}

func (m *MockStore) AccessSince(deviceID string, since time.Time) []models.AccessRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AccessRow
	for _, row := range m.Access {
		if row.DeviceID == deviceID && !row.Timestamp.Before(since) {
			out = append(out, row)
		}
	}
	return out
}

func (m *MockStore) PutBlockedSite(row models.BlockedSiteRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Blocked[row.Domain] = row
	return nil
}

func (m *MockStore) DeleteBlockedSite(domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	delete(m.Blocked, domain)
	return nil
}

func (m *MockStore) BlockedSites() []models.BlockedSiteRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.BlockedSiteRow, 0, len(m.Blocked))
	for _, row := range m.Blocked {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

func (m *MockStore) PutCategory(row models.CategoryRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Cats[row.Domain] = row.Category
	return nil
}

func (m *MockStore) Categories() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.Cats))
	for k, v := range m.Cats {
		out[k] = v
	}
	return out
}

// MockTelemetry implements interfaces.TelemetrySource from a canned snapshot.
type MockTelemetry struct {
	mu       sync.Mutex
	Counters map[string]models.InterfaceCounters
	Err      error
}

func (m *MockTelemetry) SetCounters(iface string, sent, received uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Counters == nil {
		m.Counters = make(map[string]models.InterfaceCounters)
	}
	m.Counters[iface] = models.InterfaceCounters{BytesSent: sent, BytesReceived: received}
}

func (m *MockTelemetry) Snapshot() (map[string]models.InterfaceCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]models.InterfaceCounters, len(m.Counters))
	for k, v := range m.Counters {
		out[k] = v
	}
	return out, nil
}

// MockPresence implements interfaces.PresenceSource from a fixed id set.
type MockPresence struct {
	mu     sync.Mutex
	Active map[string]struct{}
	Err    error
}

func (m *MockPresence) SetActive(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Active = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m.Active[id] = struct{}{}
	}
}

func (m *MockPresence) ActiveDeviceIDs() (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]struct{}, len(m.Active))
	for id := range m.Active {
		out[id] = struct{}{}
	}
	return out, nil
}

// MockClassifier implements interfaces.AccessClassifier over a plain channel.
type MockClassifier struct {
	Ch chan models.AccessEvent
}

func NewMockClassifier() *MockClassifier {
	return &MockClassifier{Ch: make(chan models.AccessEvent, 16)}
}

func (m *MockClassifier) Events() <-chan models.AccessEvent {
	return m.Ch
}
