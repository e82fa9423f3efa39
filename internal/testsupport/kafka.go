//go:build integration

package testsupport

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

// StartKafka launches a single-broker KRaft container, creates topics and
// returns the broker address. Topic auto-creation is off so publishing to an
// unknown topic fails as it does in production.
func StartKafka(ctx context.Context, t *testing.T, topics ...string) string {
	t.Helper()

	kc, err := kafkacontainer.Run(ctx, kafkaImage,
		kafkacontainer.WithClusterID("sabzgam-test"),
		testcontainers.WithEnv(map[string]string{"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "false"}),
	)
	testcontainers.CleanupContainer(t, kc)
	require.NoError(t, err)

	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	}
	if len(configs) > 0 {
		require.NoError(t, conn.CreateTopics(configs...))
	}
	return brokers[0]
}
