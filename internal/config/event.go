package config

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// LocalTimeLayout is accepted for OPEN_AT and CLOSE_AT when no offset is
// given; the time is read in EVENT_TZ.
const LocalTimeLayout = "2006-01-02 15:04:05"

// EventConfig holds the booking window and the refresh hints sent to
// clients. A zero OpenAt or CloseAt leaves that side of the window open.
type EventConfig struct {
	OpenAt        time.Time
	CloseAt       time.Time
	Location      *time.Location
	RefreshBefore time.Duration
	RefreshAfter  time.Duration
}

// LoadEventConfig reads OPEN_AT, CLOSE_AT and EVENT_TZ. Bad values are
// fatal.
func LoadEventConfig() EventConfig {
	loc, err := time.LoadLocation(envStr("EVENT_TZ", "UTC"))
	if err != nil {
		log.Fatalf("invalid EVENT_TZ: %v", err)
	}
	cfg := EventConfig{
		Location:      loc,
		RefreshBefore: envDur("REFRESH_BEFORE_OPEN", time.Second),
		RefreshAfter:  envDur("REFRESH_AFTER_OPEN", 2*time.Second),
	}
	if cfg.OpenAt, err = ParseEventTime(envStr("OPEN_AT", ""), loc); err != nil {
		log.Fatalf("invalid OPEN_AT: %v", err)
	}
	if cfg.CloseAt, err = ParseEventTime(envStr("CLOSE_AT", ""), loc); err != nil {
		log.Fatalf("invalid CLOSE_AT: %v", err)
	}
	if !cfg.OpenAt.IsZero() && !cfg.CloseAt.IsZero() && !cfg.CloseAt.After(cfg.OpenAt) {
		log.Fatalf("CLOSE_AT %s is not after OPEN_AT %s", cfg.CloseAt, cfg.OpenAt)
	}
	return cfg
}

// ParseEventTime accepts RFC3339 or LocalTimeLayout in loc. An empty string
// yields the zero time.
func ParseEventTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(LocalTimeLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC3339 nor %q", s, LocalTimeLayout)
	}
	return t, nil
}
