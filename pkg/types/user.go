package types

import (
	"regexp"
	"strings"
	"time"
)

// User is a registered account. Usernames are stored normalized
// (trimmed, lowercase) and are unique.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

var usernameRe = regexp.MustCompile(`^[a-z0-9._-]+$`)

// NormalizeUsername lowercases and trims a raw username. All lookups and
// uniqueness checks operate on the normalized form.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidUsername reports whether a normalized username is acceptable:
// 3-50 characters from [a-z0-9._-].
func ValidUsername(username string) bool {
	if len(username) < 3 || len(username) > 50 {
		return false
	}
	return usernameRe.MatchString(username)
}
