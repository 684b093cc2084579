package config

import "strings"

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityMember                      // Any valid access token
	SecurityAdmin                       // Access token with the admin role
)

// publicPrefixes are reachable without a token: tracking links end up in emails
// and export keys are unguessable UUIDs.
var publicPrefixes = []string{
	"/healthz",
	"/t/",
	"/exports/",
}

// memberPrefixes only need an authenticated member
var memberPrefixes = []string{
	"/api/v1/me/",
}

// GetSecurityLevel returns the security level for a request path
func GetSecurityLevel(path string) SecurityLevel {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return SecurityPublic
		}
	}
	for _, p := range memberPrefixes {
		if strings.HasPrefix(path, p) {
			return SecurityMember
		}
	}
	// Default to highest security for everything else
	return SecurityAdmin
}
