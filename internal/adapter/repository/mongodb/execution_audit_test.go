package mongodb

import (
	"testing"
	"time"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestToDocument(t *testing.T) {
	scheduled := time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)
	recorded := scheduled.Add(3 * time.Second)
	outcome := domain.FireOutcome{
		FireKey:       "transfer-triggers/job-1@1791968400",
		JobID:         "job-1",
		TriggerID:     "job-1",
		TriggerGroup:  domain.OneTimeTriggerGroup,
		ScheduledFor:  scheduled,
		StartedAt:     scheduled.Add(time.Second),
		FinishedAt:    scheduled.Add(2 * time.Second),
		Status:        domain.FireSucceeded,
		TransactionID: "LLB0123456789abcde",
	}

	doc := toDocument(outcome, recorded)

	assert.Equal(t, outcome.FireKey, doc.ID)
	assert.Equal(t, "SUCCEEDED", doc.Status)
	assert.Equal(t, "LLB0123456789abcde", doc.TransactionID)
	assert.Equal(t, recorded, doc.RecordedAt)
	assert.Empty(t, doc.Error)
}

func TestFireExecution_BSONFieldNames(t *testing.T) {
	doc := toDocument(domain.FireOutcome{
		FireKey: "recurring-transfer-triggers/job-2@1791968400",
		Status:  domain.FireFailed,
		Error:   "insufficient funds in the sender account",
	}, time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC))

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	assert.Equal(t, "recurring-transfer-triggers/job-2@1791968400", fields["_id"])
	assert.Equal(t, "FAILED", fields["status"])
	assert.Equal(t, "insufficient funds in the sender account", fields["error"])
	_, hasTxn := fields["transaction_id"]
	assert.False(t, hasTxn, "empty transaction id is omitted")
}
