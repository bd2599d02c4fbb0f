package repository

import (
	"testing"

	"repairdesk/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMarkFailedPipeline(t *testing.T) {
	reason := "$attempts: kafka write timeout"
	pipeline := markFailedPipeline(reason, 5)
	require.Len(t, pipeline, 2)

	first, ok := pipeline[0][0].Value.(bson.M)
	require.True(t, ok)
	assert.Equal(t, bson.M{"$literal": reason}, first["last_error"])
	assert.Equal(t, bson.M{"$add": bson.A{"$attempts", 1}}, first["attempts"])

	second, ok := pipeline[1][0].Value.(bson.M)
	require.True(t, ok)
	assert.Equal(t, bson.M{"$cond": bson.A{
		bson.M{"$gte": bson.A{"$attempts", 5}},
		model.OutboxFailed,
		"$status",
	}}, second["status"])
}
