package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransferInstruction_Validate(t *testing.T) {
	at := time.Date(2026, time.November, 2, 10, 0, 0, 0, time.UTC)

	base := func() TransferInstruction {
		return TransferInstruction{
			SenderAccountID:   11,
			ReceiverAccountID: 22,
			ReceiverName:      "John Smith",
			Amount:            decimal.NewFromInt(50),
			TimeZone:          "Europe/London",
		}
	}

	tests := []struct {
		name    string
		mutate  func(i *TransferInstruction)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "One-time instruction should pass",
			mutate: func(i *TransferInstruction) { i.ScheduledTime = at },
		},
		{
			name: "Recurring instruction should pass",
			mutate: func(i *TransferInstruction) {
				i.RecurrencePattern = "weekly"
				i.StartDate = at
				i.EndDate = at.AddDate(0, 3, 0)
			},
		},
		{
			name:    "Neither schedule nor recurrence should fail",
			mutate:  func(i *TransferInstruction) {},
			wantErr: true,
			errMsg:  "exactly one of",
		},
		{
			name: "Both schedule and recurrence should fail",
			mutate: func(i *TransferInstruction) {
				i.ScheduledTime = at
				i.RecurrencePattern = "DAILY"
				i.StartDate = at
				i.EndDate = at
			},
			wantErr: true,
			errMsg:  "exactly one of",
		},
		{
			name: "Recurring without end date should fail",
			mutate: func(i *TransferInstruction) {
				i.RecurrencePattern = "DAILY"
				i.StartDate = at
			},
			wantErr: true,
			errMsg:  "start date and an end date",
		},
		{
			name: "End before start should fail",
			mutate: func(i *TransferInstruction) {
				i.RecurrencePattern = "DAILY"
				i.StartDate = at
				i.EndDate = at.Add(-time.Hour)
			},
			wantErr: true,
			errMsg:  "end date must not be before start date",
		},
		{
			name: "Negative amount should fail",
			mutate: func(i *TransferInstruction) {
				i.ScheduledTime = at
				i.Amount = decimal.NewFromInt(-5)
			},
			wantErr: true,
			errMsg:  "amount must be positive",
		},
		{
			name: "Amount below ledger precision should fail",
			mutate: func(i *TransferInstruction) {
				i.ScheduledTime = at
				i.Amount = decimal.RequireFromString("0.00001")
			},
			wantErr: true,
			errMsg:  "at most 4 decimal places",
		},
		{
			name: "Amount with too many decimal places should fail",
			mutate: func(i *TransferInstruction) {
				i.ScheduledTime = at
				i.Amount = decimal.RequireFromString("12.34567")
			},
			wantErr: true,
			errMsg:  "at most 4 decimal places",
		},
		{
			name: "Trailing zeros beyond ledger precision should pass",
			mutate: func(i *TransferInstruction) {
				i.ScheduledTime = at
				i.Amount = decimal.RequireFromString("100.500000")
			},
		},
		{
			name: "Missing time zone should fail",
			mutate: func(i *TransferInstruction) {
				i.ScheduledTime = at
				i.TimeZone = ""
			},
			wantErr: true,
			errMsg:  "time zone is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instruction := base()
			tt.mutate(&instruction)
			err := instruction.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveIn(t *testing.T) {
	ny, err := LoadZone("America/New_York")
	assert.NoError(t, err)

	wall := time.Date(2026, time.July, 4, 9, 0, 0, 0, time.UTC)
	resolved := ResolveIn(wall, ny)

	// EDT is UTC-4
	assert.Equal(t, time.Date(2026, time.July, 4, 13, 0, 0, 0, time.UTC), resolved.UTC())
}

func TestLoadZone_Unknown(t *testing.T) {
	_, err := LoadZone("Mars/Olympus_Mons")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = LoadZone("  ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFindAccount(t *testing.T) {
	accounts := []Account{{ID: 1}, {ID: 2, AccountNumber: "12345678"}}

	found := FindAccount(accounts, 2)
	assert.NotNil(t, found)
	assert.Equal(t, "12345678", found.AccountNumber)
	assert.Nil(t, FindAccount(accounts, 3))
}
