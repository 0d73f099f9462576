package utils

import (
	"math/rand"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var letterRunes = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

func GetUUID() string {
	return uuid.New().String()
}

// GenerateRandomString creates a random upper-case alphanumeric string of length n.
func GenerateRandomString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rand.Intn(len(letterRunes))]
	}
	return string(b)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail matches the address format both the storefront and the mail
// relay accept.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// ContainsAny reports whether any value of b is in set a.
func ContainsAny(a map[string]struct{}, b []string) bool {
	for _, v := range b {
		if _, ok := a[v]; ok {
			return true
		}
	}
	return false
}

// ToSet builds a membership set from a slice.
func ToSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
