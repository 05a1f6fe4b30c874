package domain

// CompletionEventType tags every transfer completion notification
const CompletionEventType = "transactioncomplete"

// CompletionEvent is the message published once a transfer completes
type CompletionEvent struct {
	EventType     string `json:"type"`
	Name          string `json:"name"`
	Email         string `json:"mail"`
	Subject       string `json:"subject"`
	Body          string `json:"messageContent"`
	MaskedAccount string `json:"maskedAccount"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transactionId"`
}
