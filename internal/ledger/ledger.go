// Package ledger talks to the remote transaction ledger, the source of truth
// for every income and expense record.
package ledger

import (
	"context"
	"errors"

	"pondo/internal/core"
)

// Ports for ledger adapters.
type (
	Reader interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		Summary(ctx context.Context) (core.DashboardSummary, error)
	}

	Writer interface {
		// CreateTransaction returns a transport error only when no answer was
		// obtained. A ledger refusal is a Rejected result, not an error.
		CreateTransaction(ctx context.Context, tx core.NewTransaction) (CreateResult, error)
	}

	Ledger interface {
		Reader
		Writer
	}
)

// Status tags a CreateResult.
type Status int

const (
	Created Status = iota + 1
	Rejected
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// CreateResult is decoded once at the adapter boundary.
type CreateResult struct {
	Status      Status
	Transaction core.Transaction // set when Created
	Reason      string           // set when Rejected
	StatusCode  int              // HTTP status, 0 for non-HTTP adapters
}

func (r CreateResult) OK() bool { return r.Status == Created }

// ErrUnreadableResponse means the ledger accepted a write but its reply could
// not be decoded.
var ErrUnreadableResponse = errors.New("ledger: unreadable response")
