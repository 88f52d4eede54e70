package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// envOr parses the variable key with parse. Unset, empty or unparsable
// values leave def in place.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnvOrDefault(key, def string) string {
	return envOr(key, def, func(s string) (string, error) { return s, nil })
}

func getEnvBoolOrDefault(key string, def bool) bool {
	return envOr(key, def, strconv.ParseBool)
}

func getEnvIntOrDefault(key string, def int) int {
	return envOr(key, def, strconv.Atoi)
}

func getEnvDurationOrDefault(key string, def time.Duration) time.Duration {
	return envOr(key, def, time.ParseDuration)
}

// ParseList splits a comma-separated list, trimming blanks. It returns nil
// when nothing is left.
func ParseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
