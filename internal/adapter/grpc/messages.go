package grpc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/transferflow-backend/internal/domain"
	"github.com/simaogato/transferflow-backend/internal/usecase/transfer"
)

// fields reads typed values out of a request Struct. Numbers may be sent either
// as JSON numbers or as strings. The first conversion error is kept in err.
type fields struct {
	values map[string]*structpb.Value
	err    error
}

func newFields(st *structpb.Struct) *fields {
	return &fields{values: st.GetFields()}
}

func (f *fields) fail(name, format string, args ...any) {
	if f.err == nil {
		f.err = domain.InvalidArgument("invalid %s: %s", name, fmt.Sprintf(format, args...))
	}
}

func (f *fields) str(name string) string {
	v, ok := f.values[name]
	if !ok {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
	case *structpb.Value_NullValue:
		return ""
	default:
		f.fail(name, "expected a string")
		return ""
	}
}

func (f *fields) int64(name string) int64 {
	raw := strings.TrimSpace(f.str(name))
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f.fail(name, "%q is not an integer", raw)
	}
	return v
}

func (f *fields) int(name string, def int) int {
	if _, ok := f.values[name]; !ok {
		return def
	}
	return int(f.int64(name))
}

func (f *fields) decimal(name string) decimal.Decimal {
	raw := strings.TrimSpace(f.str(name))
	if raw == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		f.fail(name, "%q is not a decimal amount", raw)
	}
	return v
}

func (f *fields) localTime(name string) time.Time {
	raw := strings.TrimSpace(f.str(name))
	if raw == "" {
		return time.Time{}
	}
	v, err := time.Parse(domain.LocalDateTimeLayout, raw)
	if err != nil {
		f.fail(name, "%q does not match %s", raw, domain.LocalDateTimeLayout)
	}
	return v
}

// instructionFromStruct maps the transfer request fields onto a TransferInstruction
func instructionFromStruct(st *structpb.Struct) (domain.TransferInstruction, error) {
	f := newFields(st)
	in := domain.TransferInstruction{
		SenderAccountID:   f.int64("senderAccountId"),
		ReceiverAccountID: f.int64("receiverAccountId"),
		ReceiverName:      f.str("receiverName"),
		Amount:            f.decimal("amount"),
		Note:              f.str("note"),
		TransactionType:   f.str("transactionType"),
		ScheduledTime:     f.localTime("scheduledTime"),
		RecurrencePattern: f.str("recurrencePattern"),
		StartDate:         f.localTime("startDate"),
		EndDate:           f.localTime("endDate"),
		TimeZone:          f.str("timeZone"),
	}
	return in, f.err
}

// queryFromStruct maps the listing request fields onto a TransactionQuery
func queryFromStruct(st *structpb.Struct) (transfer.TransactionQuery, error) {
	f := newFields(st)
	q := transfer.TransactionQuery{
		AccountID: f.int64("accountId"),
		Page:      f.int("page", 1),
		PageSize:  f.int("pageSize", 10),
		SortBy:    f.str("sortBy"),
		SortOrder: f.str("sortOrder"),
	}
	if f.err == nil && q.AccountID <= 0 {
		return q, domain.InvalidArgument("account id is required")
	}
	return q, f.err
}

func viewToMap(v domain.TransactionView) map[string]any {
	return map[string]any{
		"id":                v.ID,
		"transactionId":     v.TransactionID,
		"senderAccountId":   v.SenderAccountID,
		"receiverAccountId": v.ReceiverAccountID,
		"recipientName":     v.RecipientName,
		"amount":            v.Amount.String(),
		"status":            string(v.Status),
		"timestamp":         v.Timestamp.UTC().Format(time.RFC3339),
		"transactionType":   v.Type,
		"note":              v.Note,
		"direction":         string(v.Direction),
		"updatedBalance":    v.UpdatedBalance.String(),
	}
}

func pageToStruct(p *transfer.TransactionPage) (*structpb.Struct, error) {
	items := make([]any, 0, len(p.Items))
	for _, v := range p.Items {
		items = append(items, viewToMap(v))
	}
	return structpb.NewStruct(map[string]any{
		"items":      items,
		"page":       p.Page,
		"pageSize":   p.PageSize,
		"totalItems": p.TotalItems,
		"totalPages": p.TotalPages,
	})
}
