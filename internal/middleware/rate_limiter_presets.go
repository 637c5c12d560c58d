package middleware

// Common rate limiting configurations.

// StrictRateLimiter - for sensitive endpoints (login, password reset).
// Burst: 3 requests, sustained: 1 request per 10 seconds.
func StrictRateLimiter() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   3,
		RefillRate: 0.1,
	}
}

// ConservativeRateLimiter - for write-heavy endpoints such as task creation
// and receipt upload. Burst: 10 requests, sustained: 5 requests per second.
func ConservativeRateLimiter() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   10,
		RefillRate: 5.0,
	}
}

// GenerousRateLimiter - for read-heavy endpoints (task polling).
// Burst: 100 requests, sustained: 50 requests per second.
func GenerousRateLimiter() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   100,
		RefillRate: 50.0,
	}
}
