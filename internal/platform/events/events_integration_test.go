//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/infinex-exchange/wallet.addressbook/internal/platform/events"
	"github.com/infinex-exchange/wallet.addressbook/pkg/testutil/containers"
)

const testTopic = "wallet.addressbook.audit.test"

func TestPublisherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rp := containers.NewRedpandaContainer(t)
	ctx := context.Background()

	admin, err := kgo.NewClient(kgo.SeedBrokers(rp.Broker))
	require.NoError(t, err)
	defer admin.Close()
	_, err = kadm.NewClient(admin).CreateTopic(ctx, 1, 1, nil, testTopic)
	require.NoError(t, err)

	publisher, err := events.NewPublisher([]string{rp.Broker}, testTopic)
	require.NoError(t, err)
	defer publisher.Close()

	emitted := events.Event{
		Type:      events.TypeAddressCreated,
		EntryID:   1,
		OwnerID:   7,
		NetworkID: "eth",
		Name:      "Alice",
	}
	require.NoError(t, publisher.Emit(ctx, emitted))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, []byte("7"), records[0].Key, "keyed by owner id")

	var got events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, events.TypeAddressCreated, got.Type)
	assert.Equal(t, int64(1), got.EntryID)
	assert.Equal(t, int64(7), got.OwnerID)
	assert.Equal(t, "eth", got.NetworkID)
	assert.Equal(t, "Alice", got.Name)
	assert.False(t, got.At.IsZero(), "publish stamps the event time")
}
