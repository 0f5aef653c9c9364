package amqp

import (
	"encoding/json"
	"time"

	"moneymanager/internal/core"
)

// EventOp names the write that produced a TransactionEvent.
type EventOp string

const (
	OpCreated     EventOp = "created"
	OpUpdated     EventOp = "updated"
	OpDeleted     EventOp = "deleted"
	OpTransferred EventOp = "transferred"
)

// EventTransaction is the snapshot of a record carried by an event. Deleted
// records can no longer be read from the store, so the event carries the
// full record rather than just its id.
type EventTransaction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Division    string    `json:"division"`
	Account     string    `json:"account"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	TransferID  string    `json:"transferId,omitempty"`
}

// TransactionEvent is published after every successful write.
type TransactionEvent struct {
	Op           EventOp            `json:"op"`
	UserID       string             `json:"userId"`
	Transactions []EventTransaction `json:"transactions"`
	Timestamp    time.Time          `json:"timestamp"`
}

func NewTransactionEvent(op EventOp, userID string, at time.Time, txs ...core.Transaction) *TransactionEvent {
	ev := &TransactionEvent{
		Op:           op,
		UserID:       userID,
		Transactions: make([]EventTransaction, 0, len(txs)),
		Timestamp:    at,
	}
	for _, tx := range txs {
		ev.Transactions = append(ev.Transactions, EventTransaction{
			ID:          tx.ID,
			Type:        string(tx.Type),
			Amount:      tx.Amount.String(),
			Category:    tx.Category,
			Division:    string(tx.Division),
			Account:     string(tx.Account),
			Description: tx.Description,
			Date:        tx.Date,
			TransferID:  tx.TransferID,
		})
	}
	return ev
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
