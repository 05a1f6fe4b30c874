package domain

import (
	"strconv"
	"time"
)

// JobGroup is the group every transfer job is stored under.
const JobGroup = "transfer-jobs"

// TransferJob is the typed payload of a scheduled job: a full copy of the
// instruction plus the customer that submitted it.
type TransferJob struct {
	Instruction TransferInstruction
	CustomerID  int64
}

// ScheduledJob is a durable description of what to execute. It is never mutated
// after creation and is removed by the store once its trigger is exhausted.
type ScheduledJob struct {
	ID          string
	Group       string
	Description string
	Payload     []byte
	CreatedAt   time.Time
}

// Fire is one occurrence of a trigger handed to the execution workers.
type Fire struct {
	JobID        string
	JobGroup     string
	TriggerID    string
	TriggerGroup string
	Payload      []byte
	ScheduledFor time.Time
	AcquiredAt   time.Time
	Trigger      Trigger
}

// Key identifies this occurrence across nodes and restarts.
func (f Fire) Key() string {
	return f.TriggerGroup + "/" + f.TriggerID + "@" + strconv.FormatInt(f.ScheduledFor.Unix(), 10)
}

// FireStatus is the final state of a fire as written to the execution audit.
type FireStatus string

const (
	FireSucceeded        FireStatus = "SUCCEEDED"
	FireFailed           FireStatus = "FAILED"
	FireSkippedMisfire   FireStatus = "SKIPPED_MISFIRE"
	FireSkippedDuplicate FireStatus = "SKIPPED_DUPLICATE"
)

// FireOutcome records what happened to a single fire.
type FireOutcome struct {
	FireKey       string
	JobID         string
	TriggerID     string
	TriggerGroup  string
	ScheduledFor  time.Time
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        FireStatus
	Error         string
	TransactionID string
}
