package suggest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazlijohar95/bankfeed/internal/domain/matcher"
)

func deposit(desc, amount string) Subject {
	return Subject{
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Type:        "deposit",
	}
}

func withdrawal(desc, amount string) Subject {
	s := deposit(desc, amount)
	s.Type = "withdrawal"
	return s
}

func TestGenerate_DepositScoresCustomersAndInvoices(t *testing.T) {
	acme := Party{ID: uuid.New(), Name: "Acme Corporation"}
	invoice := OpenDocument{ID: uuid.New(), PartyID: acme.ID, Number: "INV-001", Total: decimal.RequireFromString("1500.00")}

	dirs := Directories{
		Customers: []Party{acme, {ID: uuid.New(), Name: "Unrelated Pte Ltd"}},
		Vendors:   []Party{{ID: uuid.New(), Name: "Acme Corporation"}}, // wrong side, must be ignored
		Invoices:  []OpenDocument{invoice},
	}

	got := Generate(deposit("PAYMENT FROM ACME CORPORATION", "1500.00"), dirs, matcher.DefaultConfig())

	require.Len(t, got, 2)
	// Exact amount (1.0) outranks whole-name (0.9).
	assert.Equal(t, CandidateInvoice, got[0].Type)
	assert.Equal(t, invoice.ID, got[0].TargetID)
	assert.Equal(t, 1.0, got[0].Confidence)
	assert.Equal(t, ReasonAmountExact, got[0].Reason)
	require.NotNil(t, got[0].MatchedAmount)
	assert.True(t, got[0].MatchedAmount.Equal(invoice.Total))
	assert.False(t, got[0].IsNameBased())

	assert.Equal(t, CandidateCustomer, got[1].Type)
	assert.Equal(t, acme.ID, got[1].TargetID)
	assert.Equal(t, ReasonNameInDescription, got[1].Reason)
	assert.True(t, got[1].IsNameBased())
}

func TestGenerate_WithdrawalScoresVendorsAndBills(t *testing.T) {
	vendor := Party{ID: uuid.New(), Name: "Office Supplies Warehouse"}
	bill := OpenDocument{ID: uuid.New(), PartyID: vendor.ID, Number: "BILL-22", Total: decimal.RequireFromString("89.90")}

	dirs := Directories{
		Customers: []Party{{ID: uuid.New(), Name: "Office Supplies Warehouse"}},
		Vendors:   []Party{vendor},
		Bills:     []OpenDocument{bill},
	}

	got := Generate(withdrawal("OFFICE SUPPLIES WAREHOUSE PTE", "89.90"), dirs, matcher.DefaultConfig())

	require.Len(t, got, 2)
	for _, s := range got {
		assert.Contains(t, []CandidateType{CandidateVendor, CandidateBill}, s.Type)
	}
}

func TestGenerate_CloseAmountReason(t *testing.T) {
	bill := OpenDocument{ID: uuid.New(), Number: "BILL-9", Total: decimal.RequireFromString("1009.00")}
	dirs := Directories{Bills: []OpenDocument{bill}}

	got := Generate(withdrawal("XYZ", "1000.00"), dirs, matcher.DefaultConfig())

	require.Len(t, got, 1)
	assert.Equal(t, 0.95, got[0].Confidence)
	assert.Equal(t, ReasonAmountClose, got[0].Reason)
}

func TestGenerate_CapAndOrdering(t *testing.T) {
	// More qualifying candidates than the cap: at most 5 come back, in
	// descending confidence order.
	dirs := Directories{}
	for i := 0; i < 4; i++ {
		dirs.Customers = append(dirs.Customers, Party{
			ID:   uuid.New(),
			Name: fmt.Sprintf("Globex Partner %d", i),
		})
	}
	for i := 0; i < 4; i++ {
		dirs.Invoices = append(dirs.Invoices, OpenDocument{
			ID:     uuid.New(),
			Number: fmt.Sprintf("INV-%d", i),
			Total:  decimal.RequireFromString("500.00"),
		})
	}

	got := Generate(deposit("GLOBEX PARTNER PAYMENT", "500.00"), dirs, matcher.DefaultConfig())

	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Confidence, got[i].Confidence)
	}
}

func TestGenerate_ThresholdsFilter(t *testing.T) {
	dirs := Directories{
		Customers: []Party{{ID: uuid.New(), Name: "Completely Different Name"}},
		Invoices:  []OpenDocument{{ID: uuid.New(), Number: "INV-1", Total: decimal.RequireFromString("9999.00")}},
	}

	got := Generate(deposit("SALARY CREDIT", "100.00"), dirs, matcher.DefaultConfig())
	assert.Empty(t, got)
}

func TestGenerate_ReadOnly(t *testing.T) {
	dirs := Directories{Customers: []Party{{ID: uuid.New(), Name: "Acme Corp"}}}
	before := dirs.Customers[0]

	Generate(deposit("ACME CORP", "10"), dirs, matcher.DefaultConfig())

	assert.Equal(t, before, dirs.Customers[0])
}
