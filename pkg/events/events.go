// Package events holds the messages shared between the gateway and the
// runner: room events fanned out over Redis pub/sub and run jobs carried by
// Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Type string

const (
	FileCreated    Type = "file.created"
	FileSaved      Type = "file.saved"
	FileRenamed    Type = "file.renamed"
	FileDeleted    Type = "file.deleted"
	MessageCreated Type = "message.created"
	MemberJoined   Type = "member.joined"
	MemberLeft     Type = "member.left"
	RoomUpdated    Type = "room.updated"
	RoomDeleted    Type = "room.deleted"
	RunQueued      Type = "run.queued"
	RunFinished    Type = "run.finished"
)

const channelPrefix = "room-events:"

// ChannelPattern matches every room channel for PSubscribe.
const ChannelPattern = channelPrefix + "*"

type Event struct {
	Type    Type            `json:"type"`
	RoomID  string          `json:"room_id"`
	ActorID string          `json:"actor_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

// New builds an event stamped with the current time. The payload is
// marshalled eagerly so publish failures only come from the transport.
func New(t Type, roomID, actorID string, payload any) (Event, error) {
	ev := Event{Type: t, RoomID: roomID, ActorID: actorID, At: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("failed to marshal %s payload: %w", t, err)
		}
		ev.Payload = data
	}
	return ev, nil
}

func Channel(roomID string) string {
	return channelPrefix + roomID
}

// RoomFromChannel extracts the room id from a channel name.
func RoomFromChannel(channel string) (string, bool) {
	roomID, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok || roomID == "" {
		return "", false
	}
	return roomID, true
}

// RunsCacheKey is the Redis key of a room's cached run history.
func RunsCacheKey(roomID string) string {
	return fmt.Sprintf("runs:%s", roomID)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type redisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(ev.RoomID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s for room %s: %w", ev.Type, ev.RoomID, err)
	}
	return nil
}

// RunJob is the Kafka message produced by the gateway for every queued run.
type RunJob struct {
	RunID      string `json:"run_id"`
	RoomID     string `json:"room_id"`
	UserID     string `json:"user_id"`
	Language   string `json:"language"`
	LanguageID int    `json:"language_id"`
	Source     string `json:"source"`
	Stdin      string `json:"stdin,omitempty"`
}

func (j *RunJob) Marshal() []byte {
	data, _ := json.Marshal(j)
	return data
}

// RunStatusPayload is the payload of run.queued and run.finished events.
type RunStatusPayload struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}
