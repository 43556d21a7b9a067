package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"tracker/internal/auth"
	"tracker/internal/core"
	"tracker/internal/receipts"
)

// maxRequestBytes bounds the whole request body. It sits above the
// receipt size cap so an oversized receipt still reaches the uploader,
// which rejects it with a proper validation error instead of a
// truncated read.
const maxRequestBytes = 8 << 20

var errMissingToken = errors.New("missing bearer token")

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errMissingToken
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", errMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}

func parseLoginRequest(r *http.Request) (loginRequest, error) {
	var req loginRequest
	body := http.MaxBytesReader(nil, r.Body, 1<<20)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return loginRequest{}, fmt.Errorf("decode login body: %w", err)
	}
	return req, nil
}

type draftRequest struct {
	Title    string         `json:"title"`
	Amount   any            `json:"amount"`
	Type     string         `json:"type"`
	Category string         `json:"category"`
	Date     core.DateValue `json:"date"`
	Note     string         `json:"note"`
}

// parseJSONDraft builds a draft from a JSON body. Clients send the
// amount as a number or a string; both coerce through
// core.ParseAmountValue into a normalized decimal before validation.
// JSON submissions carry no receipt part.
func parseJSONDraft(r *http.Request) (core.Draft, error) {
	var req draftRequest
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return core.Draft{}, fmt.Errorf("decode transaction body: %w", err)
	}

	draft := core.Draft{
		Title:    sanitizeInput(req.Title),
		Type:     core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Category: sanitizeInput(req.Category),
		Date:     req.Date,
		Note:     sanitizeInput(req.Note),
	}
	// A rejected amount leaves the field empty so validation reports it
	// the same way for every body shape.
	if amount, err := core.ParseAmountValue(req.Amount); err == nil {
		draft.Amount = amount.String()
	}
	return draft, nil
}

// parseDraft builds a transaction draft from a multipart form. All
// text fields are sanitized; validation proper happens in the service.
func parseDraft(r *http.Request) (core.Draft, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(maxRequestBytes); err != nil {
		return core.Draft{}, fmt.Errorf("parse multipart form: %w", err)
	}

	draft := core.Draft{
		Title:    sanitizeInput(r.FormValue("title")),
		Amount:   strings.TrimSpace(r.FormValue("amount")),
		Type:     core.TransactionType(strings.ToLower(strings.TrimSpace(r.FormValue("type")))),
		Category: sanitizeInput(r.FormValue("category")),
		Note:     sanitizeInput(r.FormValue("note")),
		Date:     parseDateField(r.FormValue("date")),
	}

	file, header, err := r.FormFile("receipt")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// No receipt attached.
	case err != nil:
		return core.Draft{}, fmt.Errorf("read receipt part: %w", err)
	default:
		defer file.Close()
		data, name, rerr := readReceipt(file, header)
		if rerr != nil {
			return core.Draft{}, rerr
		}
		draft.Receipt = data
		draft.ReceiptName = name
	}

	return draft, nil
}

// readReceipt drains the receipt part, stopping one byte past the cap
// so oversized uploads are rejected before any bytes leave the server.
func readReceipt(file multipart.File, header *multipart.FileHeader) ([]byte, string, error) {
	if header.Size > receipts.MaxReceiptBytes {
		return nil, "", receipts.ErrReceiptTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, receipts.MaxReceiptBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read receipt: %w", err)
	}
	if int64(len(data)) > receipts.MaxReceiptBytes {
		return nil, "", receipts.ErrReceiptTooLarge
	}
	return data, header.Filename, nil
}

// parseDateField interprets an all-digit value as epoch milliseconds
// and anything else as a date string for later normalization.
func parseDateField(raw string) core.DateValue {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.NoDate()
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return core.DateFromEpochMillis(ms)
	}
	return core.DateFromString(raw)
}

// identityFromRequest verifies the bearer token and returns the caller
// identity.
func (s *Server) identityFromRequest(r *http.Request) (auth.Identity, error) {
	token, err := bearerToken(r)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("%w: %w", auth.ErrInvalidToken, err)
	}
	return s.authn.Verify(token)
}
