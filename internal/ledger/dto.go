package ledger

import (
	"time"

	ledgerdm "github.com/altayar/tourism-backend/internal/core/datamodel/ledger"
)

type BalanceResponse struct {
	LedgerType   string `json:"ledger_type"`
	BalanceCents int64  `json:"balance_cents"`
}

type EntryResponse struct {
	ID            int64     `json:"id"`
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	ReferenceType string    `json:"reference_type"`
	ReferenceID   string    `json:"reference_id"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type EntriesResponse struct {
	LedgerType string          `json:"ledger_type"`
	Entries    []EntryResponse `json:"entries"`
	NextCursor int64           `json:"next_cursor,omitempty"`
}

func toEntryResponse(e ledgerdm.Entry) EntryResponse {
	return EntryResponse{
		ID:            e.ID,
		Amount:        e.Amount,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		ReferenceType: e.ReferenceType,
		ReferenceID:   e.ReferenceID,
		Description:   e.Description,
		CreatedAt:     e.CreatedAt,
	}
}
