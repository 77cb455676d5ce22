package replication_test

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/replication"
)

func TestPubSubPublisher(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "products")
	require.NoError(t, err)

	t.Run("requires a topic", func(t *testing.T) {
		_, err := replication.NewPubSubPublisher(nil)
		assert.Error(t, err)
	})

	t.Run("routing key travels as an attribute", func(t *testing.T) {
		publisher, err := replication.NewPubSubPublisher(topic)
		require.NoError(t, err)

		require.NoError(t, publisher.Publish(ctx, "products.crud.update.one", []byte(`{"_id":"v1"}`)))

		messages := srv.Messages()
		require.Len(t, messages, 1)
		assert.JSONEq(t, `{"_id":"v1"}`, string(messages[0].Data))
		assert.Equal(t, "products.crud.update.one", messages[0].Attributes[replication.RoutingKeyAttribute])
	})
}
