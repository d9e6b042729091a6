package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })
	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	return client, srv
}

func TestPublisherPublishesJSON(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, srv := newTestClient(t)
	_, err := client.CreateTopic(ctx, "runs")
	require.NoError(t, err)

	pub := New(client, map[string]string{"source": "primerblast"})
	t.Cleanup(func() { _ = pub.Close() })

	id, err := pub.Publish(ctx, "runs", map[string]any{"stage": "RUN_DONE", "done": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "application/json", msgs[0].Attributes["content-type"])
	assert.Equal(t, "primerblast", msgs[0].Attributes["source"])

	var got map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "RUN_DONE", got["stage"])
}

func TestPublisherMissingTopic(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	pub := New(client, nil)
	t.Cleanup(func() { _ = pub.Close() })

	_, err := pub.Publish(context.Background(), "absent", "x")
	require.Error(t, err)
	_, err = pub.Publish(context.Background(), "", "x")
	require.Error(t, err)
}

func TestPublisherRejectsUnmarshalablePayload(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)
	pub := New(client, nil)
	t.Cleanup(func() { _ = pub.Close() })

	_, err := pub.Publish(context.Background(), "runs", make(chan int))
	require.ErrorContains(t, err, "marshal payload")
}

func TestPublisherWithoutClient(t *testing.T) {
	t.Parallel()

	pub := New(nil, nil)
	_, err := pub.Publish(context.Background(), "runs", "x")
	require.Error(t, err)
	require.NoError(t, pub.Close())
}
