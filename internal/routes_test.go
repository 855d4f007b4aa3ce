package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netguard/internal/controllers"
	"netguard/internal/models"
	"netguard/internal/services"
	"netguard/internal/structures"
	"netguard/internal/testutil"
)

// --- minimal mocks for routes test ---

type routeTestCache struct{}

func (m *routeTestCache) Get(_ string) ([]byte, bool) { return nil, false }
func (m *routeTestCache) Set(_ string, _ []byte)      {}

type routeTestScheduler struct{}

func (m *routeTestScheduler) Init()                                        {}
func (m *routeTestScheduler) Stop()                                        {}
func (m *routeTestScheduler) Restore() error                               { return nil }
func (m *routeTestScheduler) Persist() error                               { return nil }
func (m *routeTestScheduler) EnqueueCommand(_ models.PendingCommand) error { return nil }
func (m *routeTestScheduler) QueueDepth() int                              { return 0 }

func routeTestController() *controllers.ApiController {
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	store := testutil.NewMockStore()
	registry := services.NewDeviceRegistry(logger)
	events := services.NewEventService(&structures.Config{}, logger, metrics)
	usage := services.NewUsageService(logger, registry, store)
	policy := services.NewPolicyService(logger, metrics, registry, store, events)
	return controllers.NewApiController(logger, registry, usage, policy, &routeTestScheduler{}, &routeTestCache{})
}

func TestInitRoutes_RegistersAllEndpoints(t *testing.T) {
	router := InitRoutes(routeTestController())
	routes := router.GetRoutes()

	require.Len(t, routes, 14)

	urls := make([]string, len(routes))
	for i, r := range routes {
		urls[i] = r.Url
	}

	assert.Contains(t, urls, "/devices/register")
	assert.Contains(t, urls, "/devices/block")
	assert.Contains(t, urls, "/devices/unblock")
	assert.Contains(t, urls, "/devices/limit")
	assert.Contains(t, urls, "/devices/restrictions")
	assert.Contains(t, urls, "/devices/bind")
	assert.Contains(t, urls, "/sites/block")
	assert.Contains(t, urls, "/sites/unblock")
	assert.Contains(t, urls, "/sites/category")
	assert.Contains(t, urls, "/devices/status")
	assert.Contains(t, urls, "/devices/list")
	assert.Contains(t, urls, "/report")
	assert.Contains(t, urls, "/history")
	assert.Contains(t, urls, "/sites/list")
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	router := InitRoutes(routeTestController())

	mux := http.NewServeMux()
	for _, r := range router.GetRoutes() {
		mux.Handle(r.Url, r.Handler)
	}

	// GET /devices/list with POST should fail
	req := httptest.NewRequest(http.MethodPost, "/devices/list", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// POST /devices/register with GET should fail
	req = httptest.NewRequest(http.MethodGet, "/devices/register", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
