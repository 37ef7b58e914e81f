// Package cache provides the Redis-backed read-through cache for the
// registration list. Every write through the registration service drops the
// cached list, so readers see their own writes.
package cache
