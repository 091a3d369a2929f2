package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	attrs := map[string]string{"event": "issue.synced"}
	id1, err := pub.Publish(context.Background(), "topic-a", map[string]string{"k": "v"}, attrs)
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)

	id2, err := pub.Publish(context.Background(), "topic-b", "payload", nil)
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	attrs["event"] = "changed"

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "topic-a", msgs[0].Topic)
	assert.Equal(t, "topic-b", msgs[1].Topic)
	assert.Equal(t, "issue.synced", msgs[0].Attributes["event"])
	assert.Empty(t, msgs[1].Attributes)

	msgs[0].Topic = "modified"
	assert.Equal(t, "topic-a", pub.Messages()[0].Topic, "Messages() must return a copy")
}
