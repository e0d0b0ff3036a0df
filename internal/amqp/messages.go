package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReconcileMessage asks a worker to retry the ledger write of one saving
// goal contribution. The worker reads the contribution from the local store;
// the message only names it.
type ReconcileMessage struct {
	ContributionID string    `json:"contribution_id"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewReconcileMessage(contributionID string) *ReconcileMessage {
	return &ReconcileMessage{
		ContributionID: contributionID,
		Timestamp:      time.Now(),
	}
}

func (m *ReconcileMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReconcileMessageFromJSON decodes a delivery body. A message without a
// contribution id is rejected.
func ReconcileMessageFromJSON(data []byte) (*ReconcileMessage, error) {
	var msg ReconcileMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ContributionID == "" {
		return nil, fmt.Errorf("reconcile message without contribution id")
	}
	return &msg, nil
}
