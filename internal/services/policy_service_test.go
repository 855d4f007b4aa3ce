package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netguard/internal/models"
	"netguard/internal/structures"
	"netguard/internal/testutil"
)

type policyFixture struct {
	policy   PolicyServiceInterface
	registry DeviceRegistryInterface
	store    *testutil.MockStore
	events   EventServiceInterface
	metrics  *testutil.MockMetrics
	logger   *testutil.MockLogger
}

func newPolicyFixture(t *testing.T) *policyFixture {
	t.Helper()
	f := &policyFixture{
		store:   testutil.NewMockStore(),
		metrics: testutil.NewMockMetrics(),
		logger:  &testutil.MockLogger{},
	}
	f.registry = NewDeviceRegistry(f.logger)
	f.events = NewEventService(&structures.Config{}, f.logger, f.metrics)
	f.policy = NewPolicyService(f.logger, f.metrics, f.registry, f.store, f.events)
	return f
}

func (f *policyFixture) register(t *testing.T, mac string) string {
	t.Helper()
	id, err := f.registry.Register(models.DeviceInfo{MACAddress: mac})
	require.NoError(t, err)
	return id
}

func TestDecide_DefaultAllow(t *testing.T) {
	f := newPolicyFixture(t)
	id := f.register(t, "aa:bb:cc:dd:ee:01")
	assert.Equal(t, models.DecisionAllow, f.policy.Decide(id, "example.com"))
}

func TestDecide_GlobalBlocklistWins(t *testing.T) {
	f := newPolicyFixture(t)
	id := f.register(t, "aa:bb:cc:dd:ee:02")
	require.NoError(t, f.policy.BlockDomain("Bad.Example.com", "test"))

	assert.Equal(t, models.DecisionBlock, f.policy.Decide(id, "bad.example.com"))
	// Normalization applies on lookup too
	assert.Equal(t, models.DecisionBlock, f.policy.Decide(id, "  BAD.EXAMPLE.COM  "))
}

func TestDecide_RestrictedCategory(t *testing.T) {
	f := newPolicyFixture(t)
	id := f.register(t, "aa:bb:cc:dd:ee:03")
	require.NoError(t, f.policy.SetDomainCategory("games.example.com", "gaming"))
	require.NoError(t, f.registry.SetRestrictions(id, []string{"gaming"}))

	assert.Equal(t, models.DecisionBlock, f.policy.Decide(id, "games.example.com"))
	assert.Equal(t, models.DecisionAllow, f.policy.Decide(id, "news.example.com"))
}

func TestDecide_UncategorizedRestriction(t *testing.T) {
	f := newPolicyFixture(t)
	id := f.register(t, "aa:bb:cc:dd:ee:04")
	require.NoError(t, f.registry.SetRestrictions(id, []string{CategoryUnknown}))

	// Unknown domains carry the uncategorized label, so this restriction
	// blocks them all.
	assert.Equal(t, models.DecisionBlock, f.policy.Decide(id, "whatever.example.com"))
}

func TestDecide_OtherDeviceUnaffected(t *testing.T) {
	f := newPolicyFixture(t)
	restricted := f.register(t, "aa:bb:cc:dd:ee:05")
	free := f.register(t, "aa:bb:cc:dd:ee:06")
	require.NoError(t, f.policy.SetDomainCategory("games.example.com", "gaming"))
	require.NoError(t, f.registry.SetRestrictions(restricted, []string{"gaming"}))

	assert.Equal(t, models.DecisionBlock, f.policy.Decide(restricted, "games.example.com"))
	assert.Equal(t, models.DecisionAllow, f.policy.Decide(free, "games.example.com"))
}

func TestRecordAccess_LogMatchesDecision(t *testing.T) {
	f := newPolicyFixture(t)
	id := f.register(t, "aa:bb:cc:dd:ee:07")
	require.NoError(t, f.policy.BlockDomain("bad.example.com", "test"))

	f.policy.RecordAccess(models.AccessEvent{
		DeviceID: id,
		URL:      "https://bad.example.com/page",
		Domain:   "bad.example.com",
	})
	f.policy.RecordAccess(models.AccessEvent{
		DeviceID: id,
		URL:      "https://ok.example.com/",
		Domain:   "ok.example.com",
	})

	rows := f.store.AccessSince(id, time.Now().Add(-time.Minute))
	require.Len(t, rows, 2)
	assert.Equal(t, models.DecisionBlock, rows[0].Decision)
	assert.Equal(t, models.DecisionAllow, rows[1].Decision)

	assert.Equal(t, 1, f.metrics.AccessDecisions[string(models.DecisionBlock)])
	assert.Equal(t, 1, f.metrics.AccessDecisions[string(models.DecisionAllow)])
	assert.True(t, f.logger.HasLevel("warn"))
}

func TestRecordAccess_BlockedEmitsEvent(t *testing.T) {
	f := newPolicyFixture(t)
	id := f.register(t, "aa:bb:cc:dd:ee:08")
	require.NoError(t, f.policy.BlockDomain("bad.example.com", "test"))

	got := make(chan models.Event, 1)
	f.events.Subscribe(models.EventAccessBlocked, func(ev models.Event) { got <- ev })
	f.events.Start()
	defer f.events.Stop()

	f.policy.RecordAccess(models.AccessEvent{
		DeviceID: id,
		URL:      "https://bad.example.com/",
		Domain:   "bad.example.com",
	})

	select {
	case ev := <-got:
		assert.Equal(t, id, ev.DeviceID)
		assert.Equal(t, "bad.example.com", ev.Domain)
	case <-time.After(time.Second):
		t.Fatal("no access_blocked event received")
	}
}

func TestBlockDomain_Idempotent(t *testing.T) {
	f := newPolicyFixture(t)
	require.NoError(t, f.policy.BlockDomain("bad.example.com", "first"))
	require.NoError(t, f.policy.BlockDomain("bad.example.com", "second"))
	assert.Len(t, f.policy.BlockedSites(), 1)
}

func TestBlockDomain_Validation(t *testing.T) {
	f := newPolicyFixture(t)
	assert.ErrorIs(t, f.policy.BlockDomain("  ", "x"), models.ErrValidation)
}

func TestBlockDomain_DefaultReason(t *testing.T) {
	f := newPolicyFixture(t)
	require.NoError(t, f.policy.BlockDomain("bad.example.com", ""))

	sites := f.policy.BlockedSites()
	require.Len(t, sites, 1)
	assert.Equal(t, defaultBlockReason, sites[0].Reason)
}

func TestUnblockDomain(t *testing.T) {
	f := newPolicyFixture(t)
	id := f.register(t, "aa:bb:cc:dd:ee:09")
	require.NoError(t, f.policy.BlockDomain("bad.example.com", "test"))

	require.NoError(t, f.policy.UnblockDomain("bad.example.com"))
	assert.Equal(t, models.DecisionAllow, f.policy.Decide(id, "bad.example.com"))

	// Unblocking an unknown domain is a no-op
	require.NoError(t, f.policy.UnblockDomain("never.blocked.example.com"))
}

func TestBlockDomain_StoreFailureLeavesCacheUntouched(t *testing.T) {
	f := newPolicyFixture(t)
	id := f.register(t, "aa:bb:cc:dd:ee:0a")

	f.store.FailWith = models.ErrPersistence
	require.Error(t, f.policy.BlockDomain("bad.example.com", "test"))
	assert.Equal(t, models.DecisionAllow, f.policy.Decide(id, "bad.example.com"))
}

func TestSetDomainCategory_Overwrites(t *testing.T) {
	f := newPolicyFixture(t)
	require.NoError(t, f.policy.SetDomainCategory("site.example.com", "news"))
	assert.Equal(t, "news", f.policy.CategoryOf("site.example.com"))

	require.NoError(t, f.policy.SetDomainCategory("site.example.com", "social"))
	assert.Equal(t, "social", f.policy.CategoryOf("site.example.com"))
}

func TestCategoryOf_Unknown(t *testing.T) {
	f := newPolicyFixture(t)
	assert.Equal(t, CategoryUnknown, f.policy.CategoryOf("mystery.example.com"))
}

func TestReloadTables(t *testing.T) {
	f := newPolicyFixture(t)
	id := f.register(t, "aa:bb:cc:dd:ee:0b")

	require.NoError(t, f.store.PutBlockedSite(models.BlockedSiteRow{Domain: "bad.example.com"}))
	require.NoError(t, f.store.PutCategory(models.CategoryRow{Domain: "games.example.com", Category: "gaming"}))

	f.policy.ReloadTables()
	assert.Equal(t, models.DecisionBlock, f.policy.Decide(id, "bad.example.com"))
	assert.Equal(t, "gaming", f.policy.CategoryOf("games.example.com"))
}

func TestGetAccessHistory(t *testing.T) {
	f := newPolicyFixture(t)
	id := f.register(t, "aa:bb:cc:dd:ee:0c")

	f.store.AppendAccess(models.AccessRow{DeviceID: id, Domain: "old.example.com", Timestamp: time.Now().AddDate(0, 0, -10)})
	f.store.AppendAccess(models.AccessRow{DeviceID: id, Domain: "recent.example.com", Timestamp: time.Now()})

	rows, err := f.policy.GetAccessHistory(id, 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "recent.example.com", rows[0].Domain)
}

func TestGetAccessHistory_Validation(t *testing.T) {
	f := newPolicyFixture(t)
	id := f.register(t, "aa:bb:cc:dd:ee:0d")

	_, err := f.policy.GetAccessHistory("ff:ff:ff:ff:ff:ff", 7)
	assert.ErrorIs(t, err, models.ErrDeviceNotFound)

	_, err = f.policy.GetAccessHistory(id, 0)
	assert.ErrorIs(t, err, models.ErrValidation)
}
