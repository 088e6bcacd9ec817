package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "SubTrack"
	// AdminAlertEmailKey is the DB config key for the new-request alert address.
	AdminAlertEmailKey = "ADMIN_ALERT_EMAIL"
	// DefaultNotificationDaysBefore is the fallback renewal reminder lead time in days.
	DefaultNotificationDaysBefore = 7
	// DefaultCurrencyCode is the fallback currency for costs submitted without one.
	DefaultCurrencyCode = "INR"
	// DefaultGlobalRateLimit caps public submissions per window across all senders.
	DefaultGlobalRateLimit = 100
	// DefaultEmailRateLimit caps public submissions per window per sender email.
	DefaultEmailRateLimit = 5
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "subtrack:rl"
)
