package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tracker/internal/auth"
	"tracker/internal/core"
	"tracker/internal/ledger"
	"tracker/internal/receipts"
)

type errorResponse struct {
	Error string `json:"error"`
}

type categoryResponse struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type loginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type transactionResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	AmountCents int64  `json:"amountCents"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`
	Date        any    `json:"date,omitempty"`
	Note        string `json:"note,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type summaryResponse struct {
	IncomeCents  int64  `json:"incomeCents"`
	ExpenseCents int64  `json:"expenseCents"`
	TotalCents   int64  `json:"totalCents"`
	Income       string `json:"income"`
	Expense      string `json:"expense"`
	Total        string `json:"total"`
}

type dayGroupResponse struct {
	Label        string                `json:"label"`
	Transactions []transactionResponse `json:"transactions"`
}

type overviewResponse struct {
	DisplayName string             `json:"displayName"`
	Summary     summaryResponse    `json:"summary"`
	Recent      []dayGroupResponse `json:"recent"`
}

func newTransactionResponse(tx core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          tx.ID,
		Title:       tx.Title,
		AmountCents: tx.Amount.Cents,
		Amount:      tx.Amount.String(),
		Type:        string(tx.Type),
		Category:    tx.Category,
		Icon:        core.IconFor(tx.Category),
		Note:        tx.Note,
		ImageURL:    tx.ImageURL,
	}
	if t, ok := tx.Date.Resolve(); ok {
		resp.Date = t.UTC().Format(time.RFC3339)
	}
	return resp
}

func newOverviewResponse(ov ledger.Overview) overviewResponse {
	resp := overviewResponse{
		DisplayName: ov.DisplayName,
		Summary: summaryResponse{
			IncomeCents:  ov.Summary.Income.Cents,
			ExpenseCents: ov.Summary.Expenses.Cents,
			TotalCents:   ov.Summary.Total.Cents,
			Income:       ov.Summary.Income.String(),
			Expense:      ov.Summary.Expenses.String(),
			Total:        ov.Summary.Total.String(),
		},
		Recent: make([]dayGroupResponse, 0, len(ov.Recent)),
	}
	for _, g := range ov.Recent {
		group := dayGroupResponse{
			Label:        g.Label,
			Transactions: make([]transactionResponse, 0, len(g.Items)),
		}
		for _, tx := range g.Items {
			group.Transactions = append(group.Transactions, newTransactionResponse(tx))
		}
		resp.Recent = append(resp.Recent, group)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes. Unknown errors
// are treated as internal failures.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidDraft),
		errors.Is(err, receipts.ErrReceiptTooLarge),
		errors.Is(err, receipts.ErrUnsupportedImage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, receipts.ErrUploadFailed):
		return http.StatusBadGateway
	case errors.Is(err, ledger.ErrSubmissionInFlight):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrStore):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Do not leak backend details to clients.
		msg = "internal error"
	}
	writeError(w, status, msg)
}
