package events

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	frame := Frame(258, []byte(`{"a":1}`))

	require.Equal(t, byte(0), frame[0])
	require.Equal(t, uint32(258), binary.BigEndian.Uint32(frame[1:5]))

	id, payload, err := Unframe(frame)
	require.NoError(t, err)
	require.Equal(t, 258, id)
	require.Equal(t, `{"a":1}`, string(payload))
}

func TestUnframeRejectsBadHeaders(t *testing.T) {
	_, _, err := Unframe([]byte{0, 0, 1})
	require.ErrorContains(t, err, "too short")

	frame := Frame(1, []byte(`{}`))
	frame[0] = 1
	_, _, err = Unframe(frame)
	require.ErrorContains(t, err, "magic byte")
}

func TestDecode(t *testing.T) {
	ev, err := Decode(TypeWalkCompleted, []byte(`{"tenant_id":"t-1","steps":1250,"occurred_at":"2025-04-10T10:23:00Z"}`))
	require.NoError(t, err)
	walk, ok := ev.(WalkCompleted)
	require.True(t, ok)
	require.Equal(t, 1250, walk.Steps)
	require.Equal(t, time.Date(2025, time.April, 10, 10, 23, 0, 0, time.UTC), walk.OccurredAt)
	require.Equal(t, TypeWalkCompleted, ev.Type())
	require.Equal(t, "t-1", ev.Tenant())

	_, err = Decode(TypeWalletCredited, []byte(`{"amount_rial":"lots"}`))
	require.Error(t, err)

	_, err = Decode("walk.abandoned", []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownType)
}
