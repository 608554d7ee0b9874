package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// ActorRef identifies who caused the event. UserID is nil for the system actor.
type ActorRef struct {
	UserID *uuid.UUID `json:"userId,omitempty"`
	Role   enums.Role `json:"role"`
}

// PayloadEnvelope wraps every outbox payload. EventID equals the outbox row
// id, so consumers can dedupe on it across redeliveries.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

var (
	ErrEnvelopeNoData    = errors.New("envelope has no data")
	ErrEnvelopeNoEventID = errors.New("envelope event id invalid")
)

// DecodeEnvelope parses raw and checks that it carries an event id and a
// non-null data object.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, uuid.UUID, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, uuid.Nil, fmt.Errorf("decode envelope: %w", err)
	}
	id, err := uuid.Parse(env.EventID)
	if err != nil || id == uuid.Nil {
		return env, uuid.Nil, ErrEnvelopeNoEventID
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, id, ErrEnvelopeNoData
	}
	return env, id, nil
}
