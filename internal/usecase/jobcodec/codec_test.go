package jobcodec

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		job  domain.TransferJob
	}{
		{
			name: "One-time instruction",
			job: domain.TransferJob{
				CustomerID: 42,
				Instruction: domain.TransferInstruction{
					SenderAccountID:   1001,
					ReceiverAccountID: 2002,
					ReceiverName:      "Jane Doe",
					Amount:            decimal.RequireFromString("125.75"),
					Note:              "Rent",
					TransactionType:   "TRANSFER",
					ScheduledTime:     time.Date(2026, time.November, 1, 9, 0, 0, 0, time.UTC),
					TimeZone:          "Europe/London",
				},
			},
		},
		{
			name: "Amount with trailing zeros",
			job: domain.TransferJob{
				CustomerID: 42,
				Instruction: domain.TransferInstruction{
					SenderAccountID:   1001,
					ReceiverAccountID: 2002,
					Amount:            decimal.RequireFromString("100.50"),
					ScheduledTime:     time.Date(2026, time.November, 1, 9, 0, 0, 0, time.UTC),
					TimeZone:          "UTC",
				},
			},
		},
		{
			name: "Recurring instruction with sub-second start",
			job: domain.TransferJob{
				CustomerID: 9007199254740993, // beyond float64 integer precision
				Instruction: domain.TransferInstruction{
					SenderAccountID:   3,
					ReceiverAccountID: 4,
					Amount:            decimal.NewFromInt(10),
					RecurrencePattern: "WEEKLY",
					StartDate:         time.Date(2026, time.October, 14, 7, 15, 0, 500, time.UTC),
					EndDate:           time.Date(2027, time.October, 14, 7, 15, 0, 0, time.UTC),
					TimeZone:          "UTC",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Encode(tt.job)
			require.NoError(t, err)
			assert.NotEmpty(t, payload)

			decoded, err := Decode(payload)
			require.NoError(t, err)
			assert.Equal(t, tt.job, decoded)
		})
	}
}

func TestEncode_IsDeterministic(t *testing.T) {
	job := domain.TransferJob{
		CustomerID: 7,
		Instruction: domain.TransferInstruction{
			SenderAccountID:   1,
			ReceiverAccountID: 2,
			Amount:            decimal.NewFromInt(5),
			ScheduledTime:     time.Date(2026, time.May, 5, 5, 5, 0, 0, time.UTC),
			TimeZone:          "UTC",
		},
	}

	first, err := Encode(job)
	require.NoError(t, err)
	second, err := Encode(job)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff, 0xff})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func marshalStruct(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	st, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	b, err := proto.Marshal(st)
	require.NoError(t, err)
	return b
}

func TestDecode_SchemaViolations(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"v":                 float64(1),
			"senderAccountId":   "1",
			"receiverAccountId": "2",
			"amount":            "10",
			"customerId":        "3",
		}
	}

	tests := []struct {
		name   string
		mutate func(m map[string]any)
		errMsg string
	}{
		{name: "Unknown version", mutate: func(m map[string]any) { m["v"] = float64(2) }, errMsg: "unsupported payload version"},
		{name: "Missing version", mutate: func(m map[string]any) { delete(m, "v") }, errMsg: "unsupported payload version"},
		{name: "Missing customer", mutate: func(m map[string]any) { delete(m, "customerId") }, errMsg: `missing field "customerId"`},
		{name: "Empty amount", mutate: func(m map[string]any) { m["amount"] = "" }, errMsg: `field "amount" is empty`},
		{name: "Numeric sender", mutate: func(m map[string]any) { m["senderAccountId"] = float64(1) }, errMsg: "must be a string"},
		{name: "Bad amount", mutate: func(m map[string]any) { m["amount"] = "ten" }, errMsg: `field "amount"`},
		{name: "Bad start date", mutate: func(m map[string]any) { m["startDate"] = "yesterday" }, errMsg: `field "startDate"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := valid()
			tt.mutate(fields)

			_, err := Decode(marshalStruct(t, fields))

			assert.ErrorIs(t, err, ErrMalformedPayload)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDecode_MinimalPayload(t *testing.T) {
	payload := marshalStruct(t, map[string]any{
		"v":                 float64(1),
		"senderAccountId":   "1",
		"receiverAccountId": "2",
		"amount":            "10.5",
		"customerId":        "3",
	})

	job, err := Decode(payload)

	require.NoError(t, err)
	assert.Equal(t, int64(3), job.CustomerID)
	assert.True(t, job.Instruction.Amount.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, job.Instruction.ScheduledTime.IsZero())
	assert.False(t, job.Instruction.IsRecurring())
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "100.50", want: "100.50"},
		{in: "0.0001", want: "0.0001"},
		{in: "250", want: "250"},
		{in: "12.3400", want: "12.3400"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAmount(decimal.RequireFromString(tt.in)))
		})
	}
}
