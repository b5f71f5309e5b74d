// Package config provides configuration management for the application
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CalendarConfig holds configuration for the external calendar/directory API
type CalendarConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	TenantID     string
	// ServiceAccount is the principal whose own event list backs the
	// fallback fetch strategy when a room calendar cannot be queried.
	ServiceAccount string
	// BusinessDayZone is the IANA zone the "today" window is computed in.
	BusinessDayZone string
}

// RoomFilterConfig holds the room-selection settings that used to be
// hardcoded constants: which rooms the dashboard shows and which email
// patterns identify room resources inside attendee lists.
type RoomFilterConfig struct {
	// AllowedRooms restricts the dashboard to the named rooms.
	// Empty means every room from the directory is shown.
	AllowedRooms []string
	// RoomEmailPatterns are substrings identifying room resource
	// mailboxes (e.g. "salle-", "room-", "conf-").
	RoomEmailPatterns []string
}

// SchedulerConfig holds the refresh cadences for the per-room loops
type SchedulerConfig struct {
	// FetchInterval is how often meeting data is re-fetched from the API.
	FetchInterval time.Duration
	// EvalInterval is how often occupancy is re-derived from cached data.
	EvalInterval time.Duration
	// StartingSoonWindow is the warning window before a meeting starts.
	StartingSoonWindow time.Duration
	// DirectoryResyncSpec is a cron expression for the room-directory resync.
	DirectoryResyncSpec string
}

// RedisConfig holds Redis/Valkey cache configuration
type RedisConfig struct {
	Enabled bool
	// URI is prioritized if provided, otherwise individual connection parameters are used
	URI       string
	Host      string
	Port      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
	// TTL for cached meeting lists (0 means no expiration)
	MeetingTTL time.Duration
}

// GetCalendarConfig loads calendar API configuration from environment variables
func GetCalendarConfig() CalendarConfig {
	return CalendarConfig{
		BaseURL:         getEnv("CALENDAR_API_BASE_URL", "https://graph.microsoft.com/v1.0"),
		TokenURL:        getEnv("CALENDAR_TOKEN_URL", ""),
		ClientID:        getEnv("CALENDAR_CLIENT_ID", ""),
		ClientSecret:    getEnv("CALENDAR_CLIENT_SECRET", ""),
		TenantID:        getEnv("CALENDAR_TENANT_ID", ""),
		ServiceAccount:  getEnv("CALENDAR_SERVICE_ACCOUNT", ""),
		BusinessDayZone: getEnv("BUSINESS_DAY_ZONE", "Europe/Paris"),
	}
}

// GetRoomFilterConfig loads room filtering configuration from environment variables
func GetRoomFilterConfig() RoomFilterConfig {
	return RoomFilterConfig{
		AllowedRooms:      splitList(getEnv("ALLOWED_ROOMS", "")),
		RoomEmailPatterns: splitList(getEnv("ROOM_EMAIL_PATTERNS", "salle-,room-,conf-")),
	}
}

// GetSchedulerConfig loads scheduler cadences from environment variables
func GetSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		FetchInterval:       getEnvDuration("FETCH_INTERVAL", 3*time.Minute),
		EvalInterval:        getEnvDuration("EVAL_INTERVAL", 10*time.Second),
		StartingSoonWindow:  getEnvDuration("STARTING_SOON_WINDOW", 30*time.Minute),
		DirectoryResyncSpec: getEnv("DIRECTORY_RESYNC_CRON", "0 5 * * *"),
	}
}

// GetRedisConfig loads Redis/Valkey configuration from environment variables
func GetRedisConfig() RedisConfig {
	// Parse TTL from environment variable (in minutes); cached meeting
	// lists only need to survive until the next fetch cycle.
	ttlMinutes, _ := strconv.Atoi(getEnv("REDIS_MEETING_TTL_MINUTES", "15"))
	ttl := time.Duration(ttlMinutes) * time.Minute

	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:    getEnvBool("REDIS_ENABLED", false),
		URI:        getEnv("REDIS_URI_MROOMS", ""),
		Host:       getEnv("REDIS_HOST_MROOMS", getEnv("REDIS_ADDRESS", "localhost")),
		Port:       getEnv("REDIS_PORT_MROOMS", "6379"),
		Username:   getEnv("REDIS_USERNAME_MROOMS", ""),
		Password:   getEnv("REDIS_PASSWORD_MROOMS", getEnv("REDIS_PASSWORD", "")),
		DB:         db,
		KeyPrefix:  getEnv("REDIS_KEY_PREFIX", "mrooms:"),
		MeetingTTL: ttl,
	}
}

// IsValid checks if all required calendar API configuration is present
func (c CalendarConfig) IsValid() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.TenantID != ""
}

// RoomAllowed reports whether a room name passes the allow-list.
func (c RoomFilterConfig) RoomAllowed(name string) bool {
	if len(c.AllowedRooms) == 0 {
		return true
	}
	for _, allowed := range c.AllowedRooms {
		if strings.EqualFold(allowed, name) {
			return true
		}
	}
	return false
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool retrieves a boolean environment variable
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration retrieves a duration environment variable (Go duration syntax)
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// splitList splits a comma-separated environment value, trimming blanks
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
