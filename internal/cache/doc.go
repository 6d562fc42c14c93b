// Package cache holds the role authorization cache.
//
// Entries map a (user, application) pair to the role names the user holds in
// that application. Keys follow a fixed layout so a user's entries can be
// dropped together:
//
//	user:{userID}:app:{application}:roles
//
// Two Backend implementations exist. RoleCache is process local, bounded and
// evicts in insertion order. RedisBackend shares entries between replicas and
// delegates eviction to redis.
package cache
