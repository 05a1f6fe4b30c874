package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

const collectionName = "fire_executions"

// FireExecution is the audit document written for every fire
type FireExecution struct {
	ID            string    `bson:"_id"` // fire key, one document per occurrence
	JobID         string    `bson:"job_id"`
	TriggerID     string    `bson:"trigger_id"`
	TriggerGroup  string    `bson:"trigger_group"`
	ScheduledFor  time.Time `bson:"scheduled_for"`
	StartedAt     time.Time `bson:"started_at"`
	FinishedAt    time.Time `bson:"finished_at"`
	Status        string    `bson:"status"`
	Error         string    `bson:"error,omitempty"`
	TransactionID string    `bson:"transaction_id,omitempty"`
	RecordedAt    time.Time `bson:"recorded_at"`
}

// ExecutionAudit implements domain.ExecutionRecorder on a MongoDB collection
type ExecutionAudit struct {
	collection *mongo.Collection
}

// NewExecutionAudit creates an ExecutionAudit writing to the fire_executions collection
func NewExecutionAudit(client *mongo.Client, dbName string) *ExecutionAudit {
	collection := client.Database(dbName).Collection(collectionName)
	return &ExecutionAudit{collection: collection}
}

// Record inserts the outcome. A second outcome for the same fire key is kept as
// its own document under a suffixed id.
func (a *ExecutionAudit) Record(ctx context.Context, outcome domain.FireOutcome) error {
	doc := toDocument(outcome, time.Now().UTC())

	_, err := a.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		doc.ID = doc.ID + "#" + doc.RecordedAt.Format(time.RFC3339Nano)
		_, err = a.collection.InsertOne(ctx, doc)
	}
	if err != nil {
		return fmt.Errorf("failed to insert fire execution: %w", err)
	}
	return nil
}

func toDocument(o domain.FireOutcome, recordedAt time.Time) FireExecution {
	return FireExecution{
		ID:            o.FireKey,
		JobID:         o.JobID,
		TriggerID:     o.TriggerID,
		TriggerGroup:  o.TriggerGroup,
		ScheduledFor:  o.ScheduledFor.UTC(),
		StartedAt:     o.StartedAt.UTC(),
		FinishedAt:    o.FinishedAt.UTC(),
		Status:        string(o.Status),
		Error:         o.Error,
		TransactionID: o.TransactionID,
		RecordedAt:    recordedAt,
	}
}
