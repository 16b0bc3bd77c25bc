package constants

import "time"

const (
	DefaultTimeout = 10 * time.Second

	// Database pool settings
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
	DatabaseSSLMode         = "disable"

	// JWT token scopes
	ScopeTokenAccess  = "access"
	ScopeTokenRefresh = "refresh"

	// Redis keys
	RedisKeyTokenBlacklist = "token:blacklist:"

	// Calendar sync
	CalendarTimezone     = "Asia/Ho_Chi_Minh"
	CalendarSummaryGlyph = "🦷 "
	OAuthStateTTL        = 10 * time.Minute

	// Reconciliation window relative to now
	SyncWindowPastMonths   = 1
	SyncWindowFutureMonths = 6

	// Background tasks
	TaskCalendarReconcile = "calendar:reconcile"
)
