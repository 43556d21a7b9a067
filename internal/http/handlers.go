package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/receipts"
)

// handleLogin exchanges email and password for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := parseLoginRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid login request")
		return
	}

	token, identity, err := s.authn.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.WarnContext(r.Context(), "login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldError, err.Error())
		writeDomainError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "login succeeded",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, identity.UserID)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:  token,
		UserID: identity.UserID,
		Email:  identity.Email,
	})
}

// handleCategories returns the category registry for the submission
// form's picker. The registry is static, so no token is required.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	names := core.Categories()
	out := make([]categoryResponse, 0, len(names))
	for _, name := range names {
		out = append(out, categoryResponse{Name: name, Icon: core.IconFor(name)})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleOverview returns the balance summary and recent activity for
// the authenticated user. Results are cached per user for a short
// window and invalidated on every successful submission.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity, err := s.identityFromRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	cacheKey := overviewCacheKey(identity.UserID, time.Now())
	if cached, ok := s.overviewCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, newOverviewResponse(cached))
		return
	}

	overview, err := s.svc.Overview(r.Context(), identity.UserID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "overview failed",
			log.FieldUserID, identity.UserID,
			log.FieldError, err.Error())
		writeDomainError(w, err)
		return
	}

	s.overviewCache.Set(cacheKey, overview)
	writeJSON(w, http.StatusOK, newOverviewResponse(overview))
}

// handleCreateTransaction validates and persists a submitted draft,
// uploading the attached receipt first when one is present. Drafts
// arrive as multipart forms or, receipt-free, as JSON bodies.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity, err := s.identityFromRequest(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var draft core.Draft
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		draft, err = parseJSONDraft(r)
	} else {
		draft, err = parseDraft(r)
	}
	if err != nil {
		if errors.Is(err, receipts.ErrReceiptTooLarge) {
			writeDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid transaction form")
		return
	}

	tx, err := s.svc.Submit(r.Context(), identity.UserID, draft)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateOverview(identity.UserID)
	writeJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

// handleReceipt serves a stored receipt from the filesystem store.
// Only wired when the fs blob backend is active; GCS receipts are
// served by the bucket directly.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/receipts/")
	if key == "" {
		writeError(w, http.StatusNotFound, "receipt not found")
		return
	}

	data, err := s.receiptsFS.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "receipt not found")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
