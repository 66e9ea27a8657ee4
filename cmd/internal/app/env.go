package app

import "strings"

// envKeys lists the environment variables the server reads. Anything else
// in the environment is ignored.
var envKeys = map[string]struct{}{
	"BASE_URL":             {},
	"ENABLE_REGISTRATION":  {},
	"LOGIN_NOTICE":         {},
	"SESSION_EXPIRY":       {},
	"CONNECT_EXPIRY":       {},
	"DB_CLEANUP_TIME":      {},
	"MAX_SESSIONS":         {},
	"MAX_CONNECT_REQUESTS": {},
	"SIDE_EFFECT_TIMEOUT":  {},
	"PORT":                 {},
	"HTTP_ADDR":            {},
	"TLS":                  {},
	"TLS_CERT":             {},
	"TLS_KEY":              {},
	"DATABASE_URL":         {},
	"DB_MAX_CONNS":         {},
	"DB_MIN_CONNS":         {},
	"LOG_LEVEL":            {},
	"LOG_FORMAT":           {},
	"TRUST_PROXY":          {},
	"TOKEN_HMAC_KEY":       {},
	"TOKEN_BYTES":          {},
	"MAX_BODY_BYTES":       {},
}

// envValue maps a known variable to its config key and value. Unknown
// variables and empty values map to key "", which the env provider skips,
// so `SESSION_EXPIRY=` keeps the default. ENABLE_REGISTRATION is on only
// for the exact string "true".
func envValue(name, value string) (string, any) {
	if _, ok := envKeys[name]; !ok || value == "" {
		return "", nil
	}
	if name == "ENABLE_REGISTRATION" {
		return strings.ToLower(name), value == "true"
	}
	return strings.ToLower(name), value
}
