package monitor

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"netguard/internal/models"
	"netguard/internal/monitor/interfaces"
	"netguard/internal/providers"
	"netguard/internal/structures"
)

// Store keeps the in-memory image of the six durable tables and writes it
// as one compressed, versioned envelope. A commit mutates a clone of the
// tables, writes the file, and only then swaps the clone in, so a failed
// write leaves both disk and memory exactly as they were.
type Store struct {
	path       string
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface

	mu     sync.RWMutex
	tables *models.Tables
}

func NewStore(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *Store {
	return &Store{
		path:       conf.Persistence.FilePath,
		compressor: compressor,
		logger:     logger,
		metrics:    metrics,
		tables:     models.NewTables(),
	}
}

// Load reads the persisted envelope. A missing file means a fresh start;
// an unreadable one is fatal and must keep the engine from starting.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: failed to read persisted state: %s", models.ErrInit, err)
	}

	decompressed, err := s.compressor.Decompress(data)
	if err != nil {
		return fmt.Errorf("%w: failed to decompress persisted state: %s", models.ErrInit, err)
	}

	var storage models.StorageV1
	if err := json.Unmarshal(decompressed, &storage); err != nil {
		return fmt.Errorf("%w: failed to parse persisted state: %s", models.ErrInit, err)
	}
	if storage.Tables == nil {
		return fmt.Errorf("%w: persisted state has no tables (version %d)", models.ErrInit, storage.Version)
	}

	t := storage.Tables
	if t.DailySummary == nil {
		t.DailySummary = make(map[string]*models.SummaryRow)
	}
	if t.DeviceLimits == nil {
		t.DeviceLimits = make(map[string]*models.LimitRow)
	}
	if t.BlockedSites == nil {
		t.BlockedSites = make(map[string]*models.BlockedSiteRow)
	}
	if t.Categories == nil {
		t.Categories = make(map[string]*models.CategoryRow)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = t
	return nil
}

// Save writes the current table image. Used by the periodic persistence
// job to make appended access rows durable.
func (s *Store) Save() error {
	s.mu.RLock()
	tables := s.tables
	err := s.writeFile(tables)
	s.mu.RUnlock()
	return err
}

func (s *Store) writeFile(tables *models.Tables) error {
	started := time.Now()

	jsonData, err := json.Marshal(&models.StorageV1{
		Version: models.StorageVersion,
		Tables:  tables,
	})
	if err != nil {
		return err
	}
	data, err := s.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := s.path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	if err = os.Rename(tmpFile, s.path); err != nil {
		return err
	}

	s.metrics.ObservePersistenceDuration(time.Since(started))
	return nil
}

// commit runs mutate against a clone of the tables, persists the clone
// and swaps it in on success.
func (s *Store) commit(mutate func(t *models.Tables)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := s.tables.Clone()
	mutate(clone)

	if err := s.writeFile(clone); err != nil {
		return fmt.Errorf("%w: %s", models.ErrPersistence, err)
	}
	s.tables = clone
	return nil
}

func (s *Store) CommitUsage(rows []models.UsageRow) error {
	return s.commit(func(t *models.Tables) {
		for _, row := range rows {
			t.UsageData = append(t.UsageData, row)

			date := row.Timestamp.Format(models.DateLayout)
			key := models.SummaryKey(row.DeviceID, date)
			summary, ok := t.DailySummary[key]
			if !ok {
				summary = &models.SummaryRow{DeviceID: row.DeviceID, Date: date}
				t.DailySummary[key] = summary
			}
			summary.TotalBytes += row.BytesSent + row.BytesReceived
			summary.TotalTime += row.Duration
		}
	})
}

func (s *Store) DailyTotal(deviceID, date string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if summary, ok := s.tables.DailySummary[models.SummaryKey(deviceID, date)]; ok {
		return summary.TotalBytes
	}
	return 0
}

func (s *Store) Summaries(deviceID, fromDate, toDate string) []models.SummaryRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SummaryRow
	for _, row := range s.tables.DailySummary {
		if row.DeviceID != deviceID || row.Date < fromDate || row.Date > toDate {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func (s *Store) PutLimit(row models.LimitRow) error {
	return s.commit(func(t *models.Tables) {
		t.DeviceLimits[row.DeviceID] = &row
	})
}

func (s *Store) Limits() []models.LimitRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.LimitRow, 0, len(s.tables.DeviceLimits))
	for _, row := range s.tables.DeviceLimits {
		out = append(out, *row)
	}
	return out
}

// AppendAccess adds to the in-memory log only; the periodic save makes it
// durable. Losing the tail of the access log on a crash is acceptable,
// blocking the packet path on disk I/O is not.
func (s *Store) AppendAccess(row models.AccessRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables.WebsiteAccess = append(s.tables.WebsiteAccess, row)
}

func (s *Store) AccessSince(deviceID string, since time.Time) []models.AccessRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AccessRow
	for _, row := range s.tables.WebsiteAccess {
		if row.DeviceID != deviceID || row.Timestamp.Before(since) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (s *Store) PutBlockedSite(row models.BlockedSiteRow) error {
	return s.commit(func(t *models.Tables) {
		t.BlockedSites[row.Domain] = &row
	})
}

func (s *Store) DeleteBlockedSite(domain string) error {
	s.mu.RLock()
	_, exists := s.tables.BlockedSites[domain]
	s.mu.RUnlock()
	if !exists {
		return nil
	}
	return s.commit(func(t *models.Tables) {
		delete(t.BlockedSites, domain)
	})
}

func (s *Store) BlockedSites() []models.BlockedSiteRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.BlockedSiteRow, 0, len(s.tables.BlockedSites))
	for _, row := range s.tables.BlockedSites {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

func (s *Store) PutCategory(row models.CategoryRow) error {
	return s.commit(func(t *models.Tables) {
		t.Categories[row.Domain] = &row
	})
}

func (s *Store) Categories() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.tables.Categories))
	for domain, row := range s.tables.Categories {
		out[domain] = row.Category
	}
	return out
}
