package cache

import "fmt"

// RoleKey returns the cache key for a user's roles in one application.
func RoleKey(userID, application string) string {
	return fmt.Sprintf("user:%s:app:%s:roles", userID, application)
}

// UserPrefix returns the prefix shared by every entry of a user.
func UserPrefix(userID string) string {
	return fmt.Sprintf("user:%s:", userID)
}
