package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
)

// ReportRepository defines the interface for close-out report storage.
type ReportRepository interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Connect opens and pings a MongoDB client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}

// MongoDBReportRepository archives daily reports in the daily_reports collection.
type MongoDBReportRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewReportRepository builds a report repository on an existing client.
func NewReportRepository(client *mongo.Client, dbName string) *MongoDBReportRepository {
	return &MongoDBReportRepository{
		client:   client,
		dbName:   dbName,
		collName: "daily_reports",
	}
}

// SaveDailyReport upserts the report for its date so a rerun replaces the earlier close-out.
func (r *MongoDBReportRepository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	collection := r.client.Database(r.dbName).Collection(r.collName)
	_, err := collection.ReplaceOne(ctx,
		bson.M{"date": report.Date},
		report,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save daily report: %w", err)
	}
	return nil
}
