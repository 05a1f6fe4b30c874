// Package jobcodec converts transfer jobs to and from the opaque payload kept by
// the job store.
//
// The payload is a protobuf Struct holding a flat, versioned set of string
// fields. Decoding checks the payload against the field schema below instead of
// trusting arbitrary keys.
package jobcodec

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow-backend/internal/domain"
)

// Version is the payload schema version written by Encode.
const Version = 1

const (
	fieldVersion           = "v"
	fieldSenderAccountID   = "senderAccountId"
	fieldReceiverAccountID = "receiverAccountId"
	fieldReceiverName      = "receiverName"
	fieldAmount            = "amount"
	fieldNote              = "note"
	fieldTransactionType   = "transactionType"
	fieldScheduledTime     = "scheduledTime"
	fieldTimeZone          = "timeZone"
	fieldRecurrencePattern = "recurrencePattern"
	fieldStartDate         = "startDate"
	fieldEndDate           = "endDate"
	fieldCustomerID        = "customerId"
)

// wallClockLayout keeps sub-second precision so decoding gives back the same instant.
const wallClockLayout = "2006-01-02T15:04:05.999999999"

// ErrMalformedPayload is returned when a payload does not match the schema.
var ErrMalformedPayload = errors.New("malformed job payload")

type fieldSpec struct {
	name     string
	required bool
}

var schema = []fieldSpec{
	{name: fieldSenderAccountID, required: true},
	{name: fieldReceiverAccountID, required: true},
	{name: fieldReceiverName},
	{name: fieldAmount, required: true},
	{name: fieldNote},
	{name: fieldTransactionType},
	{name: fieldScheduledTime},
	{name: fieldTimeZone},
	{name: fieldRecurrencePattern},
	{name: fieldStartDate},
	{name: fieldEndDate},
	{name: fieldCustomerID, required: true},
}

// Encode serializes a job into its store payload.
func Encode(job domain.TransferJob) ([]byte, error) {
	in := job.Instruction
	fields := map[string]any{
		fieldVersion:           float64(Version),
		fieldSenderAccountID:   strconv.FormatInt(in.SenderAccountID, 10),
		fieldReceiverAccountID: strconv.FormatInt(in.ReceiverAccountID, 10),
		fieldReceiverName:      in.ReceiverName,
		fieldAmount:            formatAmount(in.Amount),
		fieldNote:              in.Note,
		fieldTransactionType:   in.TransactionType,
		fieldScheduledTime:     formatWallClock(in.ScheduledTime),
		fieldTimeZone:          in.TimeZone,
		fieldRecurrencePattern: in.RecurrencePattern,
		fieldStartDate:         formatWallClock(in.StartDate),
		fieldEndDate:           formatWallClock(in.EndDate),
		fieldCustomerID:        strconv.FormatInt(job.CustomerID, 10),
	}

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build job payload: %w", err)
	}
	payload, err := proto.MarshalOptions{Deterministic: true}.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	return payload, nil
}

// formatAmount keeps the amount's exponent so trailing zeros survive decoding
func formatAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// Decode parses a store payload back into a job.
func Decode(payload []byte) (domain.TransferJob, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(payload, &st); err != nil {
		return domain.TransferJob{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	fields := st.GetFields()
	version, ok := fields[fieldVersion].GetKind().(*structpb.Value_NumberValue)
	if !ok || int(version.NumberValue) != Version {
		return domain.TransferJob{}, fmt.Errorf("%w: unsupported payload version", ErrMalformedPayload)
	}

	values := make(map[string]string, len(schema))
	for _, spec := range schema {
		raw, present := fields[spec.name]
		if !present {
			if spec.required {
				return domain.TransferJob{}, fmt.Errorf("%w: missing field %q", ErrMalformedPayload, spec.name)
			}
			continue
		}
		str, ok := raw.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return domain.TransferJob{}, fmt.Errorf("%w: field %q must be a string", ErrMalformedPayload, spec.name)
		}
		if spec.required && str.StringValue == "" {
			return domain.TransferJob{}, fmt.Errorf("%w: field %q is empty", ErrMalformedPayload, spec.name)
		}
		values[spec.name] = str.StringValue
	}

	d := decoder{values: values}
	job := domain.TransferJob{
		Instruction: domain.TransferInstruction{
			SenderAccountID:   d.parseInt(fieldSenderAccountID),
			ReceiverAccountID: d.parseInt(fieldReceiverAccountID),
			ReceiverName:      values[fieldReceiverName],
			Amount:            d.parseDecimal(fieldAmount),
			Note:              values[fieldNote],
			TransactionType:   values[fieldTransactionType],
			ScheduledTime:     d.parseWallClock(fieldScheduledTime),
			TimeZone:          values[fieldTimeZone],
			RecurrencePattern: values[fieldRecurrencePattern],
			StartDate:         d.parseWallClock(fieldStartDate),
			EndDate:           d.parseWallClock(fieldEndDate),
		},
		CustomerID: d.parseInt(fieldCustomerID),
	}
	if d.err != nil {
		return domain.TransferJob{}, d.err
	}
	return job, nil
}

// decoder keeps the first conversion error so Decode can build the job in one pass.
type decoder struct {
	values map[string]string
	err    error
}

func (d *decoder) fail(name string, err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: field %q: %v", ErrMalformedPayload, name, err)
	}
}

func (d *decoder) parseInt(name string) int64 {
	v, err := strconv.ParseInt(d.values[name], 10, 64)
	if err != nil {
		d.fail(name, err)
	}
	return v
}

func (d *decoder) parseDecimal(name string) decimal.Decimal {
	v, err := decimal.NewFromString(d.values[name])
	if err != nil {
		d.fail(name, err)
	}
	return v
}

func (d *decoder) parseWallClock(name string) time.Time {
	raw := d.values[name]
	if raw == "" {
		return time.Time{}
	}
	v, err := time.Parse(wallClockLayout, raw)
	if err != nil {
		d.fail(name, err)
	}
	return v
}

func formatWallClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(wallClockLayout)
}
