package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/sabzgam/internal/events"
)

func TestProcessorRoutesByEventType(t *testing.T) {
	credit := walletCreditedRecord(t, 10, "tenant-1")
	walk := walkCompletedRecord(t, 11, "tenant-1")

	reader := &stubReader{messages: []kafka.Message{credit, walk}}
	wallet, walks := &stubHandler{}, &stubHandler{}
	router := NewRouter().
		Route(wallet, events.TypeWalletCredited).
		Route(walks, events.TypeWalkCompleted)

	before := testutil.ToFloat64(recordsCounter.WithLabelValues(events.TopicWallet, events.TypeWalletCredited, string(outcomeHandled)))

	require.ErrorIs(t, newTestProcessor(t, reader, router).Run(context.Background()), context.Canceled)

	require.Equal(t, 1, wallet.calls)
	require.Equal(t, 1, walks.calls)
	require.Equal(t, 2, reader.commitCalls)

	got, ok := wallet.last.Event.(events.WalletCredited)
	require.True(t, ok)
	require.Equal(t, int64(10000), got.AmountRial)
	require.Equal(t, 42, wallet.last.SchemaID)
	require.Equal(t, int64(10), wallet.last.Offset)
	require.Equal(t, events.TopicWallet+"-value", wallet.last.SchemaSubject)

	_, ok = walks.last.Event.(events.WalkCompleted)
	require.True(t, ok)

	after := testutil.ToFloat64(recordsCounter.WithLabelValues(events.TopicWallet, events.TypeWalletCredited, string(outcomeHandled)))
	require.InDelta(t, before+1, after, 0.0001)
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{walkCompletedRecord(t, 20, "tenant-1")}}
	first, second := &stubHandler{err: errors.New("boom")}, &stubHandler{}
	router := NewRouter().Route(first, events.TypeWalkCompleted).Route(second, events.TypeWalkCompleted)

	require.ErrorIs(t, newTestProcessor(t, reader, router).Run(context.Background()), context.Canceled)

	require.Equal(t, 1, first.calls)
	require.Zero(t, second.calls, "later handlers are skipped once one fails")
	require.Zero(t, reader.commitCalls)
}

func TestProcessorCommitsMalformedRecords(t *testing.T) {
	short := kafka.Message{Topic: events.TopicWallet, Value: []byte{0, 1}}
	short.Headers = []kafka.Header{{Key: events.HeaderEventType, Value: []byte(events.TypeWalletCredited)}}
	noHeader := walletCreditedRecord(t, 2, "tenant-1")
	noHeader.Headers = nil
	badMagic := walletCreditedRecord(t, 3, "tenant-1")
	badMagic.Value[0] = 1
	unknownType := framed(events.TopicWallet, 4, 1, []byte(`{}`), "wallet.frozen", "")
	badJSON := framed(events.TopicWallet, 5, 1, []byte(`{"amount_rial":"lots"}`), events.TypeWalletCredited, "")
	wrongTenant := walletCreditedRecord(t, 6, "tenant-1")
	wrongTenant.Headers[1].Value = []byte("tenant-2")

	reader := &stubReader{messages: []kafka.Message{short, noHeader, badMagic, unknownType, badJSON, wrongTenant}}
	handler := &stubHandler{}
	router := NewRouter().Route(handler, events.TypeWalletCredited)

	before := testutil.ToFloat64(recordsCounter.WithLabelValues(events.TopicWallet, events.TypeWalletCredited, string(outcomeMalformed)))

	require.ErrorIs(t, newTestProcessor(t, reader, router).Run(context.Background()), context.Canceled)
	require.Zero(t, handler.calls)
	require.Equal(t, 6, reader.commitCalls)

	// short, badMagic, badJSON and wrongTenant carry the wallet.credited header
	after := testutil.ToFloat64(recordsCounter.WithLabelValues(events.TopicWallet, events.TypeWalletCredited, string(outcomeMalformed)))
	require.InDelta(t, before+4, after, 0.0001)
}

func TestProcessorCommitsUnroutedEvents(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{walkCompletedRecord(t, 7, "tenant-1")}}
	handler := &stubHandler{}
	router := NewRouter().Route(handler, events.TypeWalletCredited)

	before := testutil.ToFloat64(recordsCounter.WithLabelValues(events.TopicWalks, events.TypeWalkCompleted, string(outcomeUnrouted)))

	require.ErrorIs(t, newTestProcessor(t, reader, router).Run(context.Background()), context.Canceled)
	require.Zero(t, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.InDelta(t, before+1, testutil.ToFloat64(recordsCounter.WithLabelValues(events.TopicWalks, events.TypeWalkCompleted, string(outcomeUnrouted))), 0.0001)
}

func TestProcessorRetriesAfterFetchError(t *testing.T) {
	reader := &stubReader{
		fetchErrs: []error{errors.New("broker unavailable")},
		messages:  []kafka.Message{walletCreditedRecord(t, 1, "tenant-1")},
	}
	handler := &stubHandler{}

	require.ErrorIs(t, newTestProcessor(t, reader, NewRouter().Route(handler, events.TypeWalletCredited)).Run(context.Background()), context.Canceled)
	require.Equal(t, 1, handler.calls)
}

func TestActivityTotals(t *testing.T) {
	totals := ActivityTotals{}
	ctx := context.Background()

	credited := testutil.ToFloat64(rialCredited)
	spent := testutil.ToFloat64(rialSpent)
	busTickets := testutil.ToFloat64(rewardsRedeemed.WithLabelValues("4"))
	walks := testutil.ToFloat64(walksCompleted)
	steps := testutil.ToFloat64(stepsWalked)
	co2 := testutil.ToFloat64(co2Saved)

	require.NoError(t, totals.Handle(ctx, Record{Event: events.WalletCredited{AmountRial: 20000}}))
	require.NoError(t, totals.Handle(ctx, Record{Event: events.RewardRedeemed{RewardID: 4, CostRial: 100000}}))
	require.NoError(t, totals.Handle(ctx, Record{Event: events.WalkCompleted{Steps: 1250, CO2SavedGrams: 271}}))

	require.InDelta(t, credited+20000, testutil.ToFloat64(rialCredited), 0.0001)
	require.InDelta(t, spent+100000, testutil.ToFloat64(rialSpent), 0.0001)
	require.InDelta(t, busTickets+1, testutil.ToFloat64(rewardsRedeemed.WithLabelValues("4")), 0.0001)
	require.InDelta(t, walks+1, testutil.ToFloat64(walksCompleted), 0.0001)
	require.InDelta(t, steps+1250, testutil.ToFloat64(stepsWalked), 0.0001)
	require.InDelta(t, co2+271, testutil.ToFloat64(co2Saved), 0.0001)
	require.ElementsMatch(t, []string{events.TypeWalletCredited, events.TypeRewardRedeemed, events.TypeWalkCompleted}, totals.EventTypes())
}

func newTestProcessor(t *testing.T, reader Reader, router *Router) *Processor {
	return NewProcessor(reader, router, WithLogger(log.New(testWriter{t}, "", 0)))
}

func walletCreditedRecord(t *testing.T, offset int64, tenantID string) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(events.WalletCredited{
		EntryID: "entry-1", TenantID: tenantID, UserID: "user-1", SessionID: "s-1",
		AmountRial: 10000, Balance: 135000, OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return framed(events.TopicWallet, offset, 42, payload, events.TypeWalletCredited, tenantID)
}

func walkCompletedRecord(t *testing.T, offset int64, tenantID string) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(events.WalkCompleted{
		HistoryID: "h-1", TenantID: tenantID, UserID: "user-1", SessionID: "s-1",
		Steps: 1250, DistanceKm: 1, CO2SavedGrams: 271, Coins: 1, OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return framed(events.TopicWalks, offset, 99, payload, events.TypeWalkCompleted, tenantID)
}

func framed(topic string, offset int64, schemaID int, payload []byte, eventType, tenantID string) kafka.Message {
	return kafka.Message{
		Topic:  topic,
		Offset: offset,
		Time:   time.Now().UTC(),
		Value:  events.Frame(schemaID, payload),
		Headers: []kafka.Header{
			{Key: events.HeaderEventType, Value: []byte(eventType)},
			{Key: events.HeaderTenantID, Value: []byte(tenantID)},
			{Key: events.HeaderSchemaSubject, Value: []byte(topic + "-value")},
		},
	}
}

type stubReader struct {
	fetchErrs   []error
	messages    []kafka.Message
	index       int
	commitCalls int
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

type stubHandler struct {
	calls int
	err   error
	last  Record
}

func (h *stubHandler) Handle(_ context.Context, rec Record) error {
	h.calls++
	h.last = rec
	return h.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
