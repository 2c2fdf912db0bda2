package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/fitchallenge/internal/platform/events"
)

// Topics the dispatcher publishes to.
const (
	ActivitiesTopic        = "challenge.activities"
	BonusesTopic           = "challenge.bonuses"
	ParticipantTotalsTopic = "challenge.participant_totals"
)

// Route maps an event type to its Kafka topic and registered schema.
type Route struct {
	Topic   string
	Subject string
	Schema  string
}

var routes = map[string]Route{
	events.ActivityRecordedType: {
		Topic:   ActivitiesTopic,
		Subject: ActivitiesTopic + "-value",
		Schema:  activityRecordedSchema,
	},
	events.BonusAwardedType: {
		Topic:   BonusesTopic,
		Subject: BonusesTopic + "-value",
		Schema:  bonusAwardedSchema,
	},
	events.ParticipantTotalChangedType: {
		Topic:   ParticipantTotalsTopic,
		Subject: ParticipantTotalsTopic + "-value",
		Schema:  participantTotalChangedSchema,
	},
}

// RouteFor returns the routing metadata for an event type.
func RouteFor(eventType string) (Route, bool) {
	r, ok := routes[eventType]
	return r, ok
}

// Event is a pending outbox row.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	PartitionKey  string
	// DedupeKey suppresses a second insert of the same logical event.
	DedupeKey string
	Payload   any
}

// Enqueue inserts events into the outbox inside the caller's transaction.
func Enqueue(ctx context.Context, tx pgx.Tx, evts ...Event) error {
	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
                   VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8, ''))
                   ON CONFLICT (dedupe_key) DO NOTHING`

	for _, evt := range evts {
		route, ok := RouteFor(evt.EventType)
		if !ok {
			return fmt.Errorf("outbox: unknown event type %q", evt.EventType)
		}
		payload, err := json.Marshal(evt.Payload)
		if err != nil {
			return fmt.Errorf("outbox: marshal %s: %w", evt.EventType, err)
		}
		key := evt.PartitionKey
		if key == "" {
			key = evt.AggregateID
		}
		if _, err := tx.Exec(ctx, stmt,
			evt.AggregateType, evt.AggregateID, evt.EventType, route.Topic, route.Subject, key, payload, evt.DedupeKey,
		); err != nil {
			return fmt.Errorf("outbox: insert %s: %w", evt.EventType, err)
		}
	}
	return nil
}

const activityRecordedSchema = `{
  "type": "object",
  "title": "ActivityRecorded",
  "properties": {
    "activity_id": {"type": "string"},
    "participant_id": {"type": "string"},
    "date": {"type": "string", "format": "date"},
    "workout_type": {"type": "string"},
    "category_id": {"type": "string"},
    "duration_minutes": {"type": "integer", "minimum": 0},
    "steps_count": {"type": "integer", "minimum": 0},
    "points": {"type": "integer", "minimum": 0},
    "recorded_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "participant_id", "date", "duration_minutes", "steps_count", "points", "recorded_at"],
  "additionalProperties": false
}`

const bonusAwardedSchema = `{
  "type": "object",
  "title": "BonusAwarded",
  "properties": {
    "bonus_id": {"type": "string"},
    "participant_id": {"type": "string"},
    "week_start": {"type": "string", "format": "date"},
    "week_end": {"type": "string", "format": "date"},
    "days_active": {"type": "integer", "minimum": 0, "maximum": 7},
    "points": {"type": "integer", "minimum": 0},
    "awarded_at": {"type": "string", "format": "date-time"}
  },
  "required": ["bonus_id", "participant_id", "week_start", "week_end", "days_active", "points", "awarded_at"],
  "additionalProperties": false
}`

const participantTotalChangedSchema = `{
  "type": "object",
  "title": "ParticipantTotalChanged",
  "properties": {
    "participant_id": {"type": "string"},
    "total_points": {"type": "integer", "minimum": 0},
    "reason": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["participant_id", "total_points", "reason", "occurred_at"],
  "additionalProperties": false
}`
