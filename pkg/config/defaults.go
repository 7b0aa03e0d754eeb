package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "loyly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultSMTPPort     = 587
	DefaultMailFrom     = "noreply@loyly.app"
	DefaultMailFromName = "Löyly Bookings"

	DefaultReminderTopic    = "reminder-schedules"
	DefaultSchedulerMode    = SchedulerModeLocal
	DefaultReminderLeadTime = 1 * time.Hour
	DefaultSlotLockTTL      = 10 * time.Second

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
)

const (
	SchedulerModeLocal = "local"
	SchedulerModeKafka = "kafka"
)
