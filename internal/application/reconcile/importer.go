package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

// ImportRow is one statement line in an import request.
type ImportRow struct {
	Date        time.Time
	Description string
	Reference   string
	Amount      decimal.Decimal
	Balance     *decimal.Decimal
	Type        storage.TransactionType
}

// ImportRequest is a parsed bank statement ready to be persisted.
type ImportRequest struct {
	BankAccountID uuid.UUID
	FileName      string
	BankPreset    string
	Rows          []ImportRow
}

func validateRow(index int, row ImportRow) error {
	if row.Date.IsZero() {
		return feederr.Validation("row %d: transaction date is required", index)
	}
	if row.Description == "" {
		return feederr.Validation("row %d: description is required", index)
	}
	if !row.Type.Valid() {
		return feederr.Validation("row %d: unknown transaction type %q", index, row.Type)
	}
	if !row.Amount.IsPositive() {
		return feederr.Validation("row %d: amount must be positive", index)
	}
	return nil
}

// ImportStatement validates every row and persists the batch atomically. A
// single invalid row rejects the whole statement so a partial import never
// reaches the feed.
func (s *Service) ImportStatement(ctx context.Context, ownerID uuid.UUID, req ImportRequest) (*storage.Upload, error) {
	if req.BankAccountID == uuid.Nil {
		return nil, feederr.Validation("bank account id is required")
	}
	if req.FileName == "" {
		return nil, feederr.Validation("file name is required")
	}
	if len(req.Rows) == 0 {
		return nil, feederr.Validation("statement contains no rows")
	}
	for i, row := range req.Rows {
		if err := validateRow(i, row); err != nil {
			return nil, err
		}
	}

	upload := &storage.Upload{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		BankAccountID:    req.BankAccountID,
		FileName:         req.FileName,
		BankPreset:       req.BankPreset,
		TransactionCount: len(req.Rows),
		ImportedAt:       s.now(),
	}

	transactions := make([]*storage.BankTransaction, 0, len(req.Rows))
	for _, row := range req.Rows {
		transactions = append(transactions, &storage.BankTransaction{
			ID:              uuid.New(),
			OwnerID:         ownerID,
			BankAccountID:   req.BankAccountID,
			UploadID:        &upload.ID,
			TransactionDate: row.Date,
			Description:     row.Description,
			Reference:       row.Reference,
			Amount:          row.Amount,
			Balance:         row.Balance,
			Type:            row.Type,
			MatchStatus:     storage.StatusUnmatched,
			CreatedAt:       s.now(),
		})
	}

	if err := s.repo.ImportBatch(upload, transactions); err != nil {
		return nil, feederr.Wrap(err, feederr.CategoryPersistence, "importing statement")
	}

	s.logger.Info("statement imported",
		"owner_id", ownerID,
		"bank_account_id", req.BankAccountID,
		"file_name", req.FileName,
		"rows", len(req.Rows),
	)
	return upload, nil
}
