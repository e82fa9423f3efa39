package events

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// Record headers stamped by the outbox dispatcher.
const (
	HeaderEventType     = "event_type"
	HeaderTenantID      = "tenant_id"
	HeaderSchemaSubject = "schema_subject"
)

// ErrUnknownType is returned when an event type has no payload struct.
var ErrUnknownType = errors.New("unknown event type")

// Event is implemented by every payload published through the outbox.
type Event interface {
	Type() string
	Tenant() string
}

func (WalletCredited) Type() string     { return TypeWalletCredited }
func (RewardRedeemed) Type() string     { return TypeRewardRedeemed }
func (WalkCompleted) Type() string      { return TypeWalkCompleted }
func (e WalletCredited) Tenant() string { return e.TenantID }
func (e RewardRedeemed) Tenant() string { return e.TenantID }
func (e WalkCompleted) Tenant() string  { return e.TenantID }

// Topics lists every topic the service publishes to.
func Topics() []string {
	return []string{TopicWallet, TopicWalks}
}

// Decode unmarshals payload into the struct registered for eventType.
func Decode(eventType string, payload []byte) (Event, error) {
	var ev Event
	switch eventType {
	case TypeWalletCredited:
		var e WalletCredited
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		ev = e
	case TypeRewardRedeemed:
		var e RewardRedeemed
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		ev = e
	case TypeWalkCompleted:
		var e WalkCompleted
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		ev = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, eventType)
	}
	return ev, nil
}

// Confluent framing: magic byte 0 followed by a big-endian schema ID.
const frameHeaderLen = 5

// Frame prefixes payload with the Schema Registry wire header.
func Frame(schemaID int, payload []byte) []byte {
	frame := make([]byte, frameHeaderLen+len(payload))
	binary.BigEndian.PutUint32(frame[1:frameHeaderLen], uint32(schemaID))
	copy(frame[frameHeaderLen:], payload)
	return frame
}

// Unframe splits a framed record value into its schema ID and payload.
func Unframe(value []byte) (int, []byte, error) {
	if len(value) < frameHeaderLen {
		return 0, nil, fmt.Errorf("frame too short: %d bytes", len(value))
	}
	if value[0] != 0 {
		return 0, nil, fmt.Errorf("unknown magic byte %d", value[0])
	}
	return int(binary.BigEndian.Uint32(value[1:frameHeaderLen])), value[frameHeaderLen:], nil
}
