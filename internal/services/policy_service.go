package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"netguard/internal/models"
	"netguard/internal/providers"
)

const (
	// CategoryUnknown is assumed for domains absent from the category table.
	CategoryUnknown = "uncategorized"

	defaultBlockReason = "manually blocked"
)

type PolicyServiceInterface interface {
	Decide(deviceID, domain string) models.AccessDecision
	RecordAccess(ev models.AccessEvent)
	BlockDomain(domain, reason string) error
	UnblockDomain(domain string) error
	SetDomainCategory(domain, category string) error
	CategoryOf(domain string) string
	BlockedSites() []models.BlockedSiteRow
	GetAccessHistory(deviceID string, days int) ([]models.AccessRow, error)
	ReloadTables()
}

// PolicyService decides and records domain access. The global blocklist
// and the category table are cached in memory; administrative mutations
// write through to the store before the cache changes.
type PolicyService struct {
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	registry DeviceRegistryInterface
	store    StoreInterface
	events   EventServiceInterface

	mu         sync.RWMutex
	blocked    map[string]struct{}
	categories map[string]string
}

func NewPolicyService(logger providers.Logger, metrics providers.MetricsProviderInterface, registry DeviceRegistryInterface, store StoreInterface, events EventServiceInterface) PolicyServiceInterface {
	ps := &PolicyService{
		logger:     logger,
		metrics:    metrics,
		registry:   registry,
		store:      store,
		events:     events,
		blocked:    make(map[string]struct{}),
		categories: make(map[string]string),
	}
	return ps
}

// ReloadTables rebuilds the blocklist and category caches from the store.
func (ps *PolicyService) ReloadTables() {
	blocked := make(map[string]struct{})
	for _, row := range ps.store.BlockedSites() {
		blocked[row.Domain] = struct{}{}
	}
	categories := ps.store.Categories()

	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.blocked = blocked
	ps.categories = categories
}

// Decide applies the single authoritative decision path: a globally
// blocked domain always loses, then the device's restricted categories,
// then allow.
func (ps *PolicyService) Decide(deviceID, domain string) models.AccessDecision {
	domain = normalizeDomain(domain)

	ps.mu.RLock()
	_, globallyBlocked := ps.blocked[domain]
	category := ps.categoryLocked(domain)
	ps.mu.RUnlock()

	if globallyBlocked {
		return models.DecisionBlock
	}
	if restrictions := ps.registry.Restrictions(models.NormalizeDeviceID(deviceID)); restrictions != nil {
		if _, restricted := restrictions[category]; restricted {
			return models.DecisionBlock
		}
	}
	return models.DecisionAllow
}

// RecordAccess decides and appends the record in one step so the log can
// never disagree with the decision. Blocked attempts additionally go to
// the warn log and the event sink for audit.
func (ps *PolicyService) RecordAccess(ev models.AccessEvent) {
	deviceID := models.NormalizeDeviceID(ev.DeviceID)
	domain := normalizeDomain(ev.Domain)
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	decision := ps.Decide(deviceID, domain)
	ps.store.AppendAccess(models.AccessRow{
		DeviceID:  deviceID,
		URL:       ev.URL,
		Domain:    domain,
		Category:  ps.CategoryOf(domain),
		Decision:  decision,
		Timestamp: ts,
	})
	ps.metrics.IncAccessDecisions(string(decision))

	if decision == models.DecisionBlock {
		ps.logger.Warnf(providers.TypeApp, "Blocked access attempt: %s -> %s", deviceID, ev.URL)
		ps.events.Publish(models.Event{
			Kind:      models.EventAccessBlocked,
			DeviceID:  deviceID,
			Domain:    domain,
			Timestamp: ts,
		})
	}
}

// BlockDomain adds the domain to the global blocklist. Idempotent.
func (ps *PolicyService) BlockDomain(domain, reason string) error {
	domain = normalizeDomain(domain)
	if domain == "" {
		return fmt.Errorf("%w: empty domain", models.ErrValidation)
	}
	if reason == "" {
		reason = defaultBlockReason
	}

	err := ps.store.PutBlockedSite(models.BlockedSiteRow{
		Domain:   domain,
		Category: ps.CategoryOf(domain),
		Reason:   reason,
		AddedAt:  time.Now(),
	})
	if err != nil {
		return err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.blocked[domain] = struct{}{}
	ps.logger.Infof(providers.TypeApp, "Blocked domain %s (%s)", domain, reason)
	return nil
}

// UnblockDomain removes the domain from the global blocklist. Unblocking
// a domain that is not blocked is a no-op.
func (ps *PolicyService) UnblockDomain(domain string) error {
	domain = normalizeDomain(domain)
	if domain == "" {
		return fmt.Errorf("%w: empty domain", models.ErrValidation)
	}

	if err := ps.store.DeleteBlockedSite(domain); err != nil {
		return err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.blocked, domain)
	return nil
}

func (ps *PolicyService) SetDomainCategory(domain, category string) error {
	domain = normalizeDomain(domain)
	if domain == "" || category == "" {
		return fmt.Errorf("%w: domain and category are required", models.ErrValidation)
	}

	err := ps.store.PutCategory(models.CategoryRow{
		Domain:      domain,
		Category:    category,
		LastUpdated: time.Now(),
	})
	if err != nil {
		return err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.categories[domain] = category
	return nil
}

func (ps *PolicyService) CategoryOf(domain string) string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.categoryLocked(normalizeDomain(domain))
}

func (ps *PolicyService) categoryLocked(domain string) string {
	if cat, ok := ps.categories[domain]; ok {
		return cat
	}
	return CategoryUnknown
}

func (ps *PolicyService) BlockedSites() []models.BlockedSiteRow {
	return ps.store.BlockedSites()
}

func (ps *PolicyService) GetAccessHistory(deviceID string, days int) ([]models.AccessRow, error) {
	id := models.NormalizeDeviceID(deviceID)
	if _, ok := ps.registry.Get(id); !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrDeviceNotFound, deviceID)
	}
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be at least 1", models.ErrValidation)
	}

	since := time.Now().AddDate(0, 0, -days)
	return ps.store.AccessSince(id, since), nil
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
