package config

import (
	"strconv"
	"strings"
	"time"
)

// source reads typed values through a lookup function and remembers which
// required keys were missing.
type source struct {
	lookup  func(string) (string, bool)
	missing []string
}

func (s *source) get(k string) string {
	v, ok := s.lookup(k)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func (s *source) must(k string) string {
	v := s.get(k)
	if v == "" {
		s.missing = append(s.missing, k)
	}
	return v
}

func (s *source) envStr(k, d string) string {
	if v := s.get(k); v != "" {
		return v
	}
	return d
}

func (s *source) envBool(k string, d bool) bool {
	switch strings.ToLower(s.get(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func (s *source) envInt(k string, d int) int {
	v := s.get(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func (s *source) envDur(k string, d time.Duration) time.Duration {
	v := s.get(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
