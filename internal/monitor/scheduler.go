package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/roylee0704/gron"
	"go.uber.org/atomic"

	"netguard/internal/models"
	"netguard/internal/monitor/interfaces"
	"netguard/internal/providers"
	"netguard/internal/services"
	"netguard/internal/structures"
)

const defaultCommandQueueSize = 128

// Scheduler drives the engines: every scan tick it refreshes presence,
// samples telemetry, evaluates quotas, expires timed blocks and drains
// the command queue; a slower job flushes usage sessions and another
// persists the table image. One ops mutex keeps ticks, flushes and the
// shutdown persist from interleaving.
type Scheduler struct {
	config   *structures.Config
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	registry services.DeviceRegistryInterface
	usage    services.UsageServiceInterface
	policy   services.PolicyServiceInterface
	events   services.EventServiceInterface
	store    *Store

	telemetry  interfaces.TelemetrySource
	presence   interfaces.PresenceSource
	classifier interfaces.AccessClassifier

	cron     *gron.Cron
	opsMu    sync.Mutex
	commands chan models.PendingCommand
	running  atomic.Bool
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	registry services.DeviceRegistryInterface,
	usage services.UsageServiceInterface,
	policy services.PolicyServiceInterface,
	events services.EventServiceInterface,
	store *Store,
	telemetry interfaces.TelemetrySource,
	presence interfaces.PresenceSource,
	classifier interfaces.AccessClassifier,
) interfaces.SchedulerInterface {
	size := config.Monitor.CommandQueueSize
	if size <= 0 {
		size = defaultCommandQueueSize
	}
	return &Scheduler{
		config:     config,
		logger:     logger,
		metrics:    metrics,
		registry:   registry,
		usage:      usage,
		policy:     policy,
		events:     events,
		store:      store,
		telemetry:  telemetry,
		presence:   presence,
		classifier: classifier,
		commands:   make(chan models.PendingCommand, size),
		stop:       make(chan struct{}),
	}
}

func (s *Scheduler) Init() {
	s.cron = gron.New()
	s.running.Store(true)

	s.events.Start()

	s.wg.Add(1)
	go s.consumeAccessEvents()

	s.cron.AddFunc(gron.Every(s.config.Monitor.ScanInterval), s.tick)
	s.cron.AddFunc(gron.Every(s.config.Monitor.FlushInterval), s.flushJob)
	s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), s.persistJob)
	s.cron.Start()
}

// Stop ends the periodic jobs and waits for the access consumer to exit.
// A tick already in flight runs to completion; none starts afterwards.
func (s *Scheduler) Stop() {
	s.running.Store(false)
	if s.cron != nil {
		s.cron.Stop()
	}
	close(s.stop)
	s.wg.Wait()
	s.events.Stop()
}

// Restore loads the persisted tables and rebuilds the engines' caches.
func (s *Scheduler) Restore() error {
	if err := s.store.Load(); err != nil {
		return err
	}
	s.policy.ReloadTables()
	s.usage.ReloadLimits()
	return nil
}

// Persist runs one final flush and saves the table image. Called after
// Stop during shutdown.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting state to file...")
	if err := s.usage.Flush(time.Now()); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	return s.store.Save()
}

// EnqueueCommand hands a command to the next tick's drain. Producers are
// never blocked: a full queue returns an error instead.
func (s *Scheduler) EnqueueCommand(cmd models.PendingCommand) error {
	select {
	case s.commands <- cmd:
		return nil
	default:
		return models.ErrQueueFull
	}
}

func (s *Scheduler) QueueDepth() int {
	return len(s.commands)
}

func (s *Scheduler) tick() {
	if !s.running.Load() {
		return
	}
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	started := time.Now()

	active, err := s.presence.ActiveDeviceIDs()
	if err != nil {
		s.logger.Warnf(providers.TypeApp, "Presence scan failed: %s", err)
	} else {
		s.registry.ObservePresence(active)
	}

	snapshot, err := s.telemetry.Snapshot()
	if err != nil {
		s.logger.Warnf(providers.TypeApp, "Telemetry read failed: %s", err)
	} else {
		s.usage.Sample(snapshot, started)
	}

	for _, ev := range s.usage.CheckLimits(started) {
		s.events.Publish(ev)
	}

	for _, id := range s.registry.ExpireBlocks(started) {
		s.logger.Infof(providers.TypeApp, "Timed block expired for device %s", id)
		s.events.Publish(models.Event{
			Kind:      models.EventDeviceUnblocked,
			DeviceID:  id,
			Timestamp: started,
		})
	}

	s.drainCommands()

	for status, count := range s.registry.CountByStatus() {
		s.metrics.SetDevicesTotal(string(status), count)
	}
	s.metrics.SetCommandQueueDepth(len(s.commands))
	s.metrics.ObserveTickDuration(time.Since(started))
}

// drainCommands empties the queue completely. A failing command is logged
// and the drain moves on; one bad id never stalls the rest.
func (s *Scheduler) drainCommands() {
	for {
		select {
		case cmd := <-s.commands:
			if err := s.applyCommand(cmd); err != nil {
				s.metrics.IncCommandsFailed()
				s.logger.Errorf(providers.TypeApp, "Command %s for %s failed: %s", cmd.Action, cmd.DeviceID, err)
			} else {
				s.metrics.IncCommandsProcessed()
			}
		default:
			return
		}
	}
}

func (s *Scheduler) applyCommand(cmd models.PendingCommand) error {
	switch cmd.Action {
	case models.ActionBlock:
		if err := s.registry.Block(cmd.DeviceID, cmd.Duration); err != nil {
			return err
		}
		s.events.Publish(models.Event{
			Kind:      models.EventDeviceBlocked,
			DeviceID:  models.NormalizeDeviceID(cmd.DeviceID),
			Timestamp: time.Now(),
		})
		return nil
	case models.ActionUnblock:
		return s.registry.Unblock(cmd.DeviceID)
	case models.ActionSetLimit:
		return s.usage.SetLimit(cmd.DeviceID, cmd.LimitMB, cmd.ThresholdPct)
	default:
		return fmt.Errorf("%w: unknown action %q", models.ErrValidation, cmd.Action)
	}
}

func (s *Scheduler) flushJob() {
	if !s.running.Load() {
		return
	}
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	if err := s.usage.Flush(time.Now()); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while flushing usage data: %s", err)
		return
	}
	s.logger.Debugf(providers.TypeApp, "Usage sessions flushed")
}

func (s *Scheduler) persistJob() {
	if !s.running.Load() {
		return
	}
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	if err := s.store.Save(); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return
	}
	s.logger.Infof(providers.TypeApp, "Persisted data to file %s", s.config.Persistence.FilePath)
}

// consumeAccessEvents feeds classified access records into the policy
// engine until shutdown or until the classifier closes its channel.
func (s *Scheduler) consumeAccessEvents() {
	defer s.wg.Done()

	ch := s.classifier.Events()
	for {
		select {
		case <-s.stop:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.policy.RecordAccess(ev)
		}
	}
}
