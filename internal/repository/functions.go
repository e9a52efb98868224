package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/doppel-dev/doppel/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const functionsCollection = "function_records"

type FunctionsRepository struct {
	mongoRepo *MongoRepository
}

func NewFunctionsRepository(mongoRepo *MongoRepository) *FunctionsRepository {
	return &FunctionsRepository{
		mongoRepo: mongoRepo,
	}
}

// UpsertFunction stores one function record, replacing any previous
// extraction for the same function ID.
func (r *FunctionsRepository) UpsertFunction(ctx context.Context, fn *models.FunctionRecord) error {
	fn.CreatedAt = time.Now()
	filter := bson.M{"functionId": fn.FunctionID}
	err := r.mongoRepo.ReplaceOne(ctx, functionsCollection, filter, fn,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert function record: %w", err)
	}

	return nil
}

func (r *FunctionsRepository) GetFunctionsByCorpusID(ctx context.Context, corpusID string) ([]models.FunctionRecord, error) {
	filter := bson.M{"corpusId": corpusID}

	cursor, err := r.mongoRepo.FindMany(ctx, functionsCollection, filter,
		options.Find().SetSort(bson.M{"functionId": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to find function records: %w", err)
	}
	defer cursor.Close(ctx)

	var functions []models.FunctionRecord
	if err := cursor.All(ctx, &functions); err != nil {
		return nil, fmt.Errorf("failed to decode function records: %w", err)
	}

	return functions, nil
}

func (r *FunctionsRepository) CountFunctionsByCorpusID(ctx context.Context, corpusID string) (int64, error) {
	filter := bson.M{"corpusId": corpusID}

	count, err := r.mongoRepo.CountDocuments(ctx, functionsCollection, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count function records: %w", err)
	}

	return count, nil
}
