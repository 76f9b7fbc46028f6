package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/envases/topics/es-quote-events", TopicResourceName("envases", "es-quote-events"))
	assert.Equal(t, "projects/other/topics/x", TopicResourceName("envases", "projects/other/topics/x"))
	assert.Empty(t, TopicResourceName("envases", "  "))
	assert.Empty(t, TopicResourceName("", "es-quote-events"))
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("x"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(nil))
}
