package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/repository/records/recordstest"
)

func TestMergeDocumentOverwritesOnlySuppliedFields(t *testing.T) {
	current := []byte(`{"date":"2025-03-14","amount":10,"notes":"soap","timestamp":1}`)

	merged, err := mergeDocument(current, models.Document{"amount": 12.5})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(merged, &doc))
	assert.Equal(t, 12.5, doc["amount"])
	assert.Equal(t, "soap", doc["notes"])
	assert.Equal(t, "2025-03-14", doc["date"])
}

func TestMergeDocumentRejectsCorruptValue(t *testing.T) {
	_, err := mergeDocument([]byte("{not json"), models.Document{"amount": 1})
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	s := &Store{prefix: "shop"}
	assert.Equal(t, "shop:records:sales", s.key(models.CollectionSales))
	assert.Equal(t, "shop:changes", s.channel())
}

func TestContract(t *testing.T) {
	url := os.Getenv("STYLISHCUTS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("STYLISHCUTS_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	store, err := Connect(ctx, url, "stylishcuts-test", zaptest.NewLogger(t))
	require.NoError(t, err)
	for _, c := range models.Collections {
		require.NoError(t, store.client.Del(ctx, store.key(c)).Err())
	}

	store.Start(ctx)
	t.Cleanup(func() { _ = store.Close() })
	recordstest.Run(t, store)
}
