package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/hazlijohar95/bankfeed/internal/domain/rules"
	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

// Storage provides SQLite database access for the bank feed.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

const txColumns = `id, bank_account_id, upload_id, transaction_date, description,
	reference, amount, type, balance, match_status, matched_customer_id,
	matched_vendor_id, matched_invoice_id, matched_bill_id, category_id,
	match_confidence, notes, is_reconciled, reconciled_at, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(ownerID uuid.UUID, row rowScanner) (*BankTransaction, error) {
	tx := &BankTransaction{OwnerID: ownerID}

	var (
		uploadID     uuid.NullUUID
		amount       string
		balance      sql.NullString
		customerID   uuid.NullUUID
		vendorID     uuid.NullUUID
		invoiceID    uuid.NullUUID
		billID       uuid.NullUUID
		categoryID   uuid.NullUUID
		confidence   sql.NullFloat64
		reconciledAt sql.NullTime
	)

	err := row.Scan(
		&tx.ID,
		&tx.BankAccountID,
		&uploadID,
		&tx.TransactionDate,
		&tx.Description,
		&tx.Reference,
		&amount,
		&tx.Type,
		&balance,
		&tx.MatchStatus,
		&customerID,
		&vendorID,
		&invoiceID,
		&billID,
		&categoryID,
		&confidence,
		&tx.Notes,
		&tx.IsReconciled,
		&reconciledAt,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount for transaction %s: %w", tx.ID, err)
	}
	if balance.Valid {
		b, err := decimal.NewFromString(balance.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt balance for transaction %s: %w", tx.ID, err)
		}
		tx.Balance = &b
	}
	tx.UploadID = uuidPtr(uploadID)
	tx.MatchedCustomerID = uuidPtr(customerID)
	tx.MatchedVendorID = uuidPtr(vendorID)
	tx.MatchedInvoiceID = uuidPtr(invoiceID)
	tx.MatchedBillID = uuidPtr(billID)
	if confidence.Valid {
		tx.MatchConfidence = &confidence.Float64
	}
	tx.CategoryID = uuidPtr(categoryID)
	if reconciledAt.Valid {
		t := reconciledAt.Time
		tx.ReconciledAt = &t
	}

	return tx, nil
}

func uuidPtr(v uuid.NullUUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := v.UUID
	return &id
}

func nullableUUID(p *uuid.UUID) interface{} {
	if p == nil {
		return nil
	}
	return p.String()
}

func nullableDecimal(p *decimal.Decimal) interface{} {
	if p == nil {
		return nil
	}
	return p.String()
}

func nullableFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// GetTransaction retrieves one transaction scoped to the owner.
func (s *Storage) GetTransaction(ownerID, id uuid.UUID) (*BankTransaction, error) {
	query := `SELECT ` + txColumns + ` FROM bank_transactions WHERE id = ? AND owner_id = ?`

	tx, err := scanTransaction(ownerID, s.db.QueryRow(query, id.String(), ownerID.String()))
	if err == sql.ErrNoRows {
		return nil, feederr.NotFound("transaction")
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// ListTransactions returns transactions matching the given filters with pagination
func (s *Storage) ListTransactions(ownerID uuid.UUID, filters TransactionFilters) (*TransactionListResult, error) {
	where := []string{"owner_id = ?"}
	args := []interface{}{ownerID.String()}

	if filters.AccountID != nil {
		where = append(where, "bank_account_id = ?")
		args = append(args, filters.AccountID.String())
	}
	if filters.Status != "" {
		where = append(where, "match_status = ?")
		args = append(args, string(filters.Status))
	}
	if filters.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filters.Type))
	}
	if filters.Reconciled != nil {
		where = append(where, "is_reconciled = ?")
		args = append(args, *filters.Reconciled)
	}
	if filters.Search != "" {
		where = append(where, "(description LIKE ? OR reference LIKE ?)")
		like := "%" + filters.Search + "%"
		args = append(args, like, like)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM bank_transactions WHERE " + whereClause
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(
		`SELECT %s FROM bank_transactions WHERE %s
		 ORDER BY transaction_date DESC, created_at DESC LIMIT ? OFFSET ?`,
		txColumns, whereClause,
	)
	rows, err := s.db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := &TransactionListResult{
		Transactions: make([]*BankTransaction, 0, limit),
		TotalCount:   total,
		Limit:        limit,
		Offset:       offset,
	}
	for rows.Next() {
		tx, err := scanTransaction(ownerID, rows)
		if err != nil {
			return nil, err
		}
		result.Transactions = append(result.Transactions, tx)
	}

	return result, rows.Err()
}

// ListUnmatched returns unmatched transactions in deterministic order.
func (s *Storage) ListUnmatched(ownerID uuid.UUID, accountID *uuid.UUID) ([]*BankTransaction, error) {
	query := `SELECT ` + txColumns + ` FROM bank_transactions
		WHERE owner_id = ? AND match_status = ?`
	args := []interface{}{ownerID.String(), string(StatusUnmatched)}

	if accountID != nil {
		query += " AND bank_account_id = ?"
		args = append(args, accountID.String())
	}
	query += " ORDER BY transaction_date ASC, id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*BankTransaction
	for rows.Next() {
		tx, err := scanTransaction(ownerID, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}

	return out, rows.Err()
}

// UpdateMatchState writes the match state only when the current status
// still equals expected, making concurrent transitions lose cleanly
// instead of overwriting each other.
func (s *Storage) UpdateMatchState(ownerID, id uuid.UUID, expected MatchStatus, state MatchState) (*BankTransaction, error) {
	res, err := s.db.Exec(`
		UPDATE bank_transactions
		SET match_status = ?, matched_customer_id = ?, matched_vendor_id = ?,
		    matched_invoice_id = ?, matched_bill_id = ?, category_id = ?,
		    match_confidence = ?
		WHERE id = ? AND owner_id = ? AND match_status = ?`,
		string(state.Status),
		nullableUUID(state.CustomerID),
		nullableUUID(state.VendorID),
		nullableUUID(state.InvoiceID),
		nullableUUID(state.BillID),
		nullableUUID(state.CategoryID),
		nullableFloat(state.Confidence),
		id.String(), ownerID.String(), string(expected),
	)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Either the row is gone or someone else transitioned it first.
		current, err := s.GetTransaction(ownerID, id)
		if err != nil {
			return nil, err
		}
		return nil, feederr.Conflict(
			"transaction status is %s, expected %s", current.MatchStatus, expected)
	}

	return s.GetTransaction(ownerID, id)
}

// SetReconciled flags a matched transaction as reconciled.
func (s *Storage) SetReconciled(ownerID, id uuid.UUID, at time.Time) (*BankTransaction, error) {
	res, err := s.db.Exec(`
		UPDATE bank_transactions
		SET is_reconciled = 1, reconciled_at = ?
		WHERE id = ? AND owner_id = ? AND match_status = ?`,
		at, id.String(), ownerID.String(), string(StatusMatched),
	)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		current, err := s.GetTransaction(ownerID, id)
		if err != nil {
			return nil, err
		}
		return nil, feederr.Conflict(
			"only matched transactions can be reconciled (status is %s)", current.MatchStatus)
	}

	return s.GetTransaction(ownerID, id)
}

// GetStats aggregates the owner's transactions by status and direction.
// Amounts are summed as decimals in Go; SQLite would coerce the TEXT
// column to float.
func (s *Storage) GetStats(ownerID uuid.UUID, accountID *uuid.UUID) (*FeedStats, error) {
	query := `SELECT match_status, type, is_reconciled, amount
		FROM bank_transactions WHERE owner_id = ?`
	args := []interface{}{ownerID.String()}
	if accountID != nil {
		query += " AND bank_account_id = ?"
		args = append(args, accountID.String())
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	stats := &FeedStats{
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
	}
	for rows.Next() {
		var (
			status     MatchStatus
			typ        TransactionType
			reconciled bool
			amountStr  string
		)
		if err := rows.Scan(&status, &typ, &reconciled, &amountStr); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount in stats row: %w", err)
		}

		stats.Total++
		switch status {
		case StatusUnmatched:
			stats.Unmatched++
		case StatusSuggested:
			stats.Suggested++
		case StatusMatched:
			stats.Matched++
		case StatusExcluded:
			stats.Excluded++
		}
		if reconciled {
			stats.Reconciled++
		}
		if typ == TypeDeposit {
			stats.DepositCount++
			stats.TotalDeposits = stats.TotalDeposits.Add(amount)
		} else {
			stats.WithdrawalCount++
			stats.TotalWithdrawals = stats.TotalWithdrawals.Add(amount)
		}
	}

	return stats, rows.Err()
}

// ImportBatch inserts the upload record and its transactions atomically.
func (s *Storage) ImportBatch(upload *Upload, transactions []*BankTransaction) error {
	dbTx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = dbTx.Rollback() }()

	_, err = dbTx.Exec(`
		INSERT INTO bank_feed_uploads
		(id, owner_id, bank_account_id, file_name, bank_preset, transaction_count, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		upload.ID.String(), upload.OwnerID.String(), upload.BankAccountID.String(),
		upload.FileName, upload.BankPreset, upload.TransactionCount, upload.ImportedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := dbTx.Prepare(`
		INSERT INTO bank_transactions
		(id, owner_id, bank_account_id, upload_id, transaction_date, description,
		 reference, amount, type, balance, match_status, notes, is_reconciled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, tx := range transactions {
		_, err = stmt.Exec(
			tx.ID.String(), tx.OwnerID.String(), tx.BankAccountID.String(),
			nullableUUID(tx.UploadID), tx.TransactionDate, tx.Description,
			tx.Reference, tx.Amount.String(), string(tx.Type),
			nullableDecimal(tx.Balance), string(tx.MatchStatus), tx.Notes,
			tx.IsReconciled, tx.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return dbTx.Commit()
}

// ListUploads returns the owner's uploads, newest first.
func (s *Storage) ListUploads(ownerID uuid.UUID) ([]Upload, error) {
	rows, err := s.db.Query(`
		SELECT id, bank_account_id, file_name, bank_preset, transaction_count, imported_at
		FROM bank_feed_uploads WHERE owner_id = ? ORDER BY imported_at DESC`,
		ownerID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Upload
	for rows.Next() {
		u := Upload{OwnerID: ownerID}
		if err := rows.Scan(&u.ID, &u.BankAccountID, &u.FileName, &u.BankPreset,
			&u.TransactionCount, &u.ImportedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	return out, rows.Err()
}

// SaveRule inserts a validated rule.
func (s *Storage) SaveRule(rule *MatchingRule) error {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}
	actionJSON, err := json.Marshal(rule.Action)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO matching_rules
		(id, owner_id, name, priority, conditions_json, action_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rule.ID.String(), rule.OwnerID.String(), rule.Name, rule.Priority,
		string(conditionsJSON), string(actionJSON), rule.CreatedAt,
	)
	return err
}

func scanRule(ownerID uuid.UUID, row rowScanner) (*MatchingRule, error) {
	rule := &MatchingRule{OwnerID: ownerID}
	var conditionsJSON, actionJSON string

	err := row.Scan(&rule.ID, &rule.Name, &rule.Priority,
		&conditionsJSON, &actionJSON, &rule.CreatedAt)
	if err != nil {
		return nil, err
	}

	rule.Conditions, err = rules.UnmarshalConditions([]byte(conditionsJSON))
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(actionJSON), &rule.Action); err != nil {
		return nil, fmt.Errorf("rule %s: malformed action: %w", rule.ID, err)
	}

	return rule, nil
}

// GetRule retrieves one rule scoped to the owner.
func (s *Storage) GetRule(ownerID, id uuid.UUID) (*MatchingRule, error) {
	rule, err := scanRule(ownerID, s.db.QueryRow(`
		SELECT id, name, priority, conditions_json, action_json, created_at
		FROM matching_rules WHERE id = ? AND owner_id = ?`,
		id.String(), ownerID.String()))
	if err == sql.ErrNoRows {
		return nil, feederr.NotFound("rule")
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListRules returns the owner's rules in evaluation order.
func (s *Storage) ListRules(ownerID uuid.UUID) ([]MatchingRule, error) {
	rows, err := s.db.Query(`
		SELECT id, name, priority, conditions_json, action_json, created_at
		FROM matching_rules WHERE owner_id = ?
		ORDER BY priority ASC, created_at ASC`,
		ownerID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []MatchingRule
	for rows.Next() {
		rule, err := scanRule(ownerID, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}

	return out, rows.Err()
}

// DeleteRule removes a rule, returning not-found when absent.
func (s *Storage) DeleteRule(ownerID, id uuid.UUID) error {
	res, err := s.db.Exec(`DELETE FROM matching_rules WHERE id = ? AND owner_id = ?`,
		id.String(), ownerID.String())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return feederr.NotFound("rule")
	}
	return nil
}
