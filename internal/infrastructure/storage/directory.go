package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hazlijohar95/bankfeed/pkg/feederr"
)

// Directory reads. The customer/vendor/invoice/bill tables are mirrors of
// the bookkeeping collaborators, kept current by the sync-side Save
// methods below; the engine itself only reads them.

func (s *Storage) listParties(table string, ownerID uuid.UUID) ([]Party, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT id, name FROM %s WHERE owner_id = ? ORDER BY name ASC`, table),
		ownerID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Party
	for rows.Next() {
		var p Party
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (s *Storage) getParty(table, resource string, ownerID, id uuid.UUID) (*Party, error) {
	var p Party
	err := s.db.QueryRow(
		fmt.Sprintf(`SELECT id, name FROM %s WHERE id = ? AND owner_id = ?`, table),
		id.String(), ownerID.String(),
	).Scan(&p.ID, &p.Name)
	if err == sql.ErrNoRows {
		return nil, feederr.NotFound(resource)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListCustomers returns the owner's customer directory.
func (s *Storage) ListCustomers(ownerID uuid.UUID) ([]Party, error) {
	return s.listParties("customers", ownerID)
}

// ListVendors returns the owner's vendor directory.
func (s *Storage) ListVendors(ownerID uuid.UUID) ([]Party, error) {
	return s.listParties("vendors", ownerID)
}

// GetCustomer retrieves one customer.
func (s *Storage) GetCustomer(ownerID, id uuid.UUID) (*Party, error) {
	return s.getParty("customers", "customer", ownerID, id)
}

// GetVendor retrieves one vendor.
func (s *Storage) GetVendor(ownerID, id uuid.UUID) (*Party, error) {
	return s.getParty("vendors", "vendor", ownerID, id)
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var total string
	if err := row.Scan(&doc.ID, &doc.PartyID, &doc.Number, &total, &doc.Status); err != nil {
		return nil, err
	}
	var err error
	doc.Total, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("corrupt total for document %s: %w", doc.ID, err)
	}
	return &doc, nil
}

func (s *Storage) listDocuments(table, partyColumn string, ownerID uuid.UUID, statuses []string) ([]Document, error) {
	placeholders := make([]string, len(statuses))
	args := []interface{}{ownerID.String()}
	for i, status := range statuses {
		placeholders[i] = "?"
		args = append(args, status)
	}

	query := fmt.Sprintf(
		`SELECT id, %s, number, total, status FROM %s
		 WHERE owner_id = ? AND status IN (%s) ORDER BY number ASC`,
		partyColumn, table, strings.Join(placeholders, ", "),
	)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}

	return out, rows.Err()
}

func (s *Storage) getDocument(table, partyColumn, resource string, ownerID, id uuid.UUID) (*Document, error) {
	doc, err := scanDocument(s.db.QueryRow(
		fmt.Sprintf(`SELECT id, %s, number, total, status FROM %s WHERE id = ? AND owner_id = ?`,
			partyColumn, table),
		id.String(), ownerID.String(),
	))
	if err == sql.ErrNoRows {
		return nil, feederr.NotFound(resource)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListOpenInvoices returns invoices awaiting payment.
func (s *Storage) ListOpenInvoices(ownerID uuid.UUID) ([]Document, error) {
	return s.listDocuments("invoices", "customer_id", ownerID, []string{"sent", "unpaid"})
}

// ListOpenBills returns bills awaiting settlement.
func (s *Storage) ListOpenBills(ownerID uuid.UUID) ([]Document, error) {
	return s.listDocuments("bills", "vendor_id", ownerID, []string{"pending", "overdue"})
}

// GetInvoice retrieves one invoice regardless of status.
func (s *Storage) GetInvoice(ownerID, id uuid.UUID) (*Document, error) {
	return s.getDocument("invoices", "customer_id", "invoice", ownerID, id)
}

// GetBill retrieves one bill regardless of status.
func (s *Storage) GetBill(ownerID, id uuid.UUID) (*Document, error) {
	return s.getDocument("bills", "vendor_id", "bill", ownerID, id)
}

// ListCategories returns the owner's categories.
func (s *Storage) ListCategories(ownerID uuid.UUID) ([]Category, error) {
	rows, err := s.db.Query(
		`SELECT id, name, type, color FROM categories WHERE owner_id = ? ORDER BY name ASC`,
		ownerID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Color); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

// GetCategory retrieves one category.
func (s *Storage) GetCategory(ownerID, id uuid.UUID) (*Category, error) {
	var c Category
	err := s.db.QueryRow(
		`SELECT id, name, type, color FROM categories WHERE id = ? AND owner_id = ?`,
		id.String(), ownerID.String(),
	).Scan(&c.ID, &c.Name, &c.Type, &c.Color)
	if err == sql.ErrNoRows {
		return nil, feederr.NotFound("category")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveCustomer upserts a customer directory entry.
func (s *Storage) SaveCustomer(ownerID uuid.UUID, p Party) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO customers (id, owner_id, name) VALUES (?, ?, ?)`,
		p.ID.String(), ownerID.String(), p.Name,
	)
	return err
}

// SaveVendor upserts a vendor directory entry.
func (s *Storage) SaveVendor(ownerID uuid.UUID, p Party) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO vendors (id, owner_id, name) VALUES (?, ?, ?)`,
		p.ID.String(), ownerID.String(), p.Name,
	)
	return err
}

// SaveInvoice upserts an invoice summary.
func (s *Storage) SaveInvoice(ownerID uuid.UUID, doc Document) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO invoices (id, owner_id, customer_id, number, total, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID.String(), ownerID.String(), doc.PartyID.String(),
		doc.Number, doc.Total.String(), doc.Status,
	)
	return err
}

// SaveBill upserts a bill summary.
func (s *Storage) SaveBill(ownerID uuid.UUID, doc Document) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO bills (id, owner_id, vendor_id, number, total, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID.String(), ownerID.String(), doc.PartyID.String(),
		doc.Number, doc.Total.String(), doc.Status,
	)
	return err
}

// SaveCategory upserts a category.
func (s *Storage) SaveCategory(ownerID uuid.UUID, c Category) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO categories (id, owner_id, name, type, color) VALUES (?, ?, ?, ?, ?)`,
		c.ID.String(), ownerID.String(), c.Name, c.Type, c.Color,
	)
	return err
}
