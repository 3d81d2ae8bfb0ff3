package sheets

import (
	"context"

	"fundbook/internal/core"
)

// Ports for the spreadsheet export adapters.
type (
	// TransactionAppender writes one transaction as a spreadsheet row.
	TransactionAppender interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// TransactionRemover deletes a transaction's row by its id.
	TransactionRemover interface {
		Remove(ctx context.Context, transactionID string) error
	}
)
