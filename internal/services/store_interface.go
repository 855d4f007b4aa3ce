package services

import (
	"time"

	"netguard/internal/models"
)

// StoreInterface is the persistence boundary consumed by the engines.
// Put/Delete/Commit methods are durable when they return nil; Append is
// memory-only and relies on the periodic save.
type StoreInterface interface {
	// CommitUsage appends the interval rows and folds them into the daily
	// summaries in one transaction. Either everything is durable or the
	// store is unchanged.
	CommitUsage(rows []models.UsageRow) error
	DailyTotal(deviceID, date string) uint64
	Summaries(deviceID, fromDate, toDate string) []models.SummaryRow

	PutLimit(row models.LimitRow) error
	Limits() []models.LimitRow

	AppendAccess(row models.AccessRow)
	AccessSince(deviceID string, since time.Time) []models.AccessRow

	PutBlockedSite(row models.BlockedSiteRow) error
	DeleteBlockedSite(domain string) error
	BlockedSites() []models.BlockedSiteRow

	PutCategory(row models.CategoryRow) error
	Categories() map[string]string
}
