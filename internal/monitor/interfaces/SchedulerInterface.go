package interfaces

import "netguard/internal/models"

type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
	EnqueueCommand(cmd models.PendingCommand) error
	QueueDepth() int
}
