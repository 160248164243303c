package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/repository/records/recordstest"
)

func TestToDocumentFlattensBSON(t *testing.T) {
	oid := primitive.NewObjectID()
	at := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	raw := bson.M{
		"_id":        oid,
		"date":       "2025-03-14",
		"totalSales": 50.0,
		"timestamp":  int32(7),
		"customers": bson.A{
			bson.D{{Key: "name", Value: "Ama"}, {Key: "service", Value: "Haircut"}, {Key: "price", Value: int32(50)}},
		},
		"created": primitive.NewDateTimeFromTime(at),
	}

	id, doc, err := toDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), id)
	assert.NotContains(t, doc, "_id")
	assert.Equal(t, int64(7), doc["timestamp"])
	assert.Equal(t, at.UnixMilli(), doc["created"])

	customers := doc["customers"].([]any)
	assert.Equal(t, map[string]any{"name": "Ama", "service": "Haircut", "price": int64(50)}, customers[0])

	rec, err := models.DecodeSales(id, doc)
	require.NoError(t, err)
	assert.Equal(t, 50.0, rec.Customers[0].Price)
}

func TestToDocumentRequiresID(t *testing.T) {
	_, _, err := toDocument(bson.M{"date": "2025-03-14"})
	assert.ErrorIs(t, err, errMissingID)
}

func TestContract(t *testing.T) {
	uri := os.Getenv("STYLISHCUTS_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("STYLISHCUTS_TEST_MONGODB_URI not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("stylishcuts_test")
	require.NoError(t, db.Drop(ctx))

	store := NewStore(client, "stylishcuts_test", 100*time.Millisecond, zaptest.NewLogger(t))
	store.Start(ctx)
	t.Cleanup(store.Close)
	recordstest.Run(t, store)
}

func TestSaveDailyReportUpserts(t *testing.T) {
	uri := os.Getenv("STYLISHCUTS_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("STYLISHCUTS_TEST_MONGODB_URI not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	repo := NewReportRepository(client, "stylishcuts_test")
	report := models.DailyReport{Date: "2025-03-14", TotalSales: 80, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.SaveDailyReport(ctx, report))
	report.TotalSales = 95
	require.NoError(t, repo.SaveDailyReport(ctx, report))

	n, err := client.Database("stylishcuts_test").Collection("daily_reports").CountDocuments(ctx, bson.M{"date": "2025-03-14"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
