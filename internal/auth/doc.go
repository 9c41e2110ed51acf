// Package auth provides the request gate for the public API.
//
// It supports two modes, selected by whether API_KEYS is set:
//   - "none": No key required (default), every request is attributed to its client IP
//   - "api_key": Requests under /v1 must carry one of the configured keys
//
// # Configuration
//
//	API_KEYS=key-one,key-two   # Comma-separated; empty disables the gate
//	RATE_LIMIT_RPS=5           # Token refill per client per second; 0 disables limiting
//	RATE_LIMIT_BURST=20        # Bucket size per client
//
// Keys are accepted from the X-API-Key header or as "Authorization: Bearer <key>".
//
// # Usage
//
//	authMiddleware := auth.NewMiddleware(cfg.Auth)
//	limiter := auth.NewRateLimiter(auth.RateLimitConfig{RequestsPerSecond: 5, Burst: 20})
//	defer limiter.Stop()
//
//	v1 := router.Group("/v1", authMiddleware.Handler(), limiter.Middleware())
//
// Rate limiting is keyed by the authenticated key when present and by client IP otherwise.
package auth
