package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hazlijohar95/bankfeed/internal/api/dto"
	"github.com/hazlijohar95/bankfeed/internal/application/reconcile"
	"github.com/hazlijohar95/bankfeed/internal/infrastructure/storage"
)

// TransactionsHandler handles bank-transaction HTTP requests.
type TransactionsHandler struct {
	*Base
	service *reconcile.Service
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo storage.Repository, service *reconcile.Service) *TransactionsHandler {
	return &TransactionsHandler{
		Base:    NewBase(repo),
		service: service,
	}
}

// List handles GET /api/bank-transactions with filtering and pagination.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerID(r)

	filters := storage.TransactionFilters{
		Status:     storage.MatchStatus(r.URL.Query().Get("status")),
		Type:       storage.TransactionType(r.URL.Query().Get("type")),
		Search:     r.URL.Query().Get("search"),
		Reconciled: ParseBoolParam(r, "reconciled"),
		Limit:      ParseIntParam(r, "limit", 50),
		Offset:     ParseIntParam(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("bank_account_id"); raw != "" {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid bank_account_id"))
			return
		}
		filters.AccountID = &accountID
	}

	result, err := h.repo.ListTransactions(ownerID, filters)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	response := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(result.Transactions)),
		TotalCount:   result.TotalCount,
		Limit:        result.Limit,
		Offset:       result.Offset,
	}
	for _, tx := range result.Transactions {
		response.Transactions = append(response.Transactions, dto.NewTransactionResponse(tx))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/bank-transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	txID, err := ParseUUIDPathParam(r, "id")
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	tx, err := h.repo.GetTransaction(OwnerID(r), txID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewTransactionResponse(tx))
}

// Stats handles GET /api/bank-transactions/stats.
func (h *TransactionsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ownerID := OwnerID(r)

	var accountID *uuid.UUID
	if raw := r.URL.Query().Get("bank_account_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid bank_account_id"))
			return
		}
		accountID = &parsed
	}

	stats, err := h.repo.GetStats(ownerID, accountID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewStatsResponse(stats))
}

// Import handles POST /api/bank-transactions/import.
func (h *TransactionsHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req dto.ImportTransactionsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	accountID, err := uuid.Parse(req.BankAccountID)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("invalid bank_account_id"))
		return
	}

	importReq := reconcile.ImportRequest{
		BankAccountID: accountID,
		FileName:      req.FileName,
		BankPreset:    req.BankPreset,
		Rows:          make([]reconcile.ImportRow, 0, len(req.Transactions)),
	}
	for i, row := range req.Transactions {
		parsed, err := parseImportRow(row)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.ValidationError(
				fmt.Sprintf("row %d: %v", i, err)))
			return
		}
		importReq.Rows = append(importReq.Rows, parsed)
	}

	upload, err := h.service.ImportStatement(r.Context(), OwnerID(r), importReq)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, dto.NewImportResponse(upload))
}

var (
	errInvalidDate    = errors.New("invalid date, expected YYYY-MM-DD")
	errInvalidAmount  = errors.New("invalid amount")
	errInvalidBalance = errors.New("invalid balance")
)

func parseImportRow(row dto.ImportRowRequest) (reconcile.ImportRow, error) {
	date, err := time.Parse("2006-01-02", row.Date)
	if err != nil {
		return reconcile.ImportRow{}, errInvalidDate
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return reconcile.ImportRow{}, errInvalidAmount
	}

	parsed := reconcile.ImportRow{
		Date:        date,
		Description: row.Description,
		Reference:   row.Reference,
		Amount:      amount,
		Type:        storage.TransactionType(row.Type),
	}
	if row.Balance != "" {
		balance, err := decimal.NewFromString(row.Balance)
		if err != nil {
			return reconcile.ImportRow{}, errInvalidBalance
		}
		parsed.Balance = &balance
	}
	return parsed, nil
}
