// Package redis provides a Redis/Valkey implementation of the repository interface
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/navikt/mrooms/internal/config"
	"github.com/navikt/mrooms/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("entity not found")
)

// Repository implements the repository interface with Redis storage.
// Meeting lists carry a TTL so stale data ages out between fetch
// cycles; the room directory does not expire.
type Repository struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRepository creates a new Redis repository
func NewRepository(cfg config.RedisConfig) (*Repository, error) {
	var client *redis.Client

	// Use URI if provided, otherwise build connection from individual parameters
	if cfg.URI != "" {
		opt, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
		}

		if opt.DB == 0 {
			opt.DB = cfg.DB
		}
		if opt.Password == "" && cfg.Password != "" {
			opt.Password = cfg.Password
		}

		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Repository{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.MeetingTTL,
	}, nil
}

// Close closes the Redis connection
func (r *Repository) Close() error {
	return r.client.Close()
}

// roomKey returns the Redis key for a room directory entry
func (r *Repository) roomKey(id string) string {
	return fmt.Sprintf("%srooms:%s", r.keyPrefix, id)
}

// roomSetKey returns the Redis key of the room ID index set
func (r *Repository) roomSetKey() string {
	return fmt.Sprintf("%srooms", r.keyPrefix)
}

// meetingsKey returns the Redis key for a room's cached meeting list
func (r *Repository) meetingsKey(roomID string) string {
	return fmt.Sprintf("%smeetings:%s", r.keyPrefix, roomID)
}

// SaveRoom stores or updates a room directory entry
func (r *Repository) SaveRoom(ctx context.Context, room models.MeetingRoom) error {
	data, err := json.Marshal(&room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.roomKey(room.ID), data, 0)
	pipe.SAdd(ctx, r.roomSetKey(), room.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}
	return nil
}

// GetRoom retrieves a room by ID
func (r *Repository) GetRoom(ctx context.Context, id string) (models.MeetingRoom, error) {
	data, err := r.client.Get(ctx, r.roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.MeetingRoom{}, ErrNotFound
	}
	if err != nil {
		return models.MeetingRoom{}, fmt.Errorf("failed to get room: %w", err)
	}

	var room models.MeetingRoom
	if err := json.Unmarshal(data, &room); err != nil {
		return models.MeetingRoom{}, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return room, nil
}

// ListRooms returns every cached room
func (r *Repository) ListRooms(ctx context.Context) ([]models.MeetingRoom, error) {
	ids, err := r.client.SMembers(ctx, r.roomSetKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room IDs: %w", err)
	}

	rooms := make([]models.MeetingRoom, 0, len(ids))
	for _, id := range ids {
		room, err := r.GetRoom(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Index entry outlived the room key; drop it.
			r.client.SRem(ctx, r.roomSetKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// DeleteRoom removes a room and its cached meetings
func (r *Repository) DeleteRoom(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.roomKey(id))
	pipe.Del(ctx, r.meetingsKey(id))
	pipe.SRem(ctx, r.roomSetKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return nil
}

// ReplaceMeetings swaps a room's cached meeting list wholesale
func (r *Repository) ReplaceMeetings(ctx context.Context, roomID string, meetings []*models.Meeting) error {
	data, err := json.Marshal(meetings)
	if err != nil {
		return fmt.Errorf("failed to marshal meetings: %w", err)
	}

	if err := r.client.Set(ctx, r.meetingsKey(roomID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save meetings: %w", err)
	}
	return nil
}

// GetMeetings returns a room's cached meeting list. ErrNotFound means
// no data is cached (or it expired), distinct from an empty list.
func (r *Repository) GetMeetings(ctx context.Context, roomID string) ([]*models.Meeting, error) {
	data, err := r.client.Get(ctx, r.meetingsKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meetings: %w", err)
	}

	var meetings []*models.Meeting
	if err := json.Unmarshal(data, &meetings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meetings: %w", err)
	}
	return meetings, nil
}
