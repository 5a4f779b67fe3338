package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kaleidoswap/desktop-app/internal/account"
	"github.com/kaleidoswap/desktop-app/internal/mnemonic"
)

// accountStopTimeout bounds how long deleting an account waits for its
// node to exit before killing it.
const accountStopTimeout = 5 * time.Second

type currentAccountRequest struct {
	AccountName string `json:"account_name"`
}

type storeMnemonicRequest struct {
	Mnemonic string `json:"mnemonic"`
	Password string `json:"password"`
}

type revealMnemonicRequest struct {
	Password string `json:"password"`
}

// handleListAccounts returns all accounts.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		s.logger.Error("listing accounts", "error", err)
		writeInternalError(w, "failed to list accounts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// handleCreateAccount inserts a new account.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var a account.Account
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	a.ID = 0

	if err := s.accounts.Create(r.Context(), &a); err != nil {
		s.writeAccountError(w, err, a.Name)
		return
	}
	s.logger.Info("account created", "account", a.Name, "network", a.Network)
	writeJSON(w, http.StatusCreated, a)
}

// handleGetAccount returns one account by name.
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, err := s.accounts.GetByName(r.Context(), name)
	if err != nil {
		s.writeAccountError(w, err, name)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleUpdateAccount replaces an account's settings. The name in the path
// identifies the row; the body may rename it.
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	existing, err := s.accounts.GetByName(r.Context(), name)
	if err != nil {
		s.writeAccountError(w, err, name)
		return
	}

	updated := *existing
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	updated.ID = existing.ID
	updated.HasMnemonic = existing.HasMnemonic

	if err := s.accounts.Update(r.Context(), &updated); err != nil {
		s.writeAccountError(w, err, updated.Name)
		return
	}
	if updated.Name != name {
		if current, ok := s.selection.Get(); ok && current == name {
			s.selection.Set(updated.Name)
		}
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteAccount removes an account and its node data, stopping the
// account's node first if it is running.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.accounts.GetByName(r.Context(), name); err != nil {
		s.writeAccountError(w, err, name)
		return
	}

	if s.supervisor.IsRunningForAccount(name) {
		if err := s.stopNodeAndWait(name); err != nil {
			writeNodeError(w, err)
			return
		}
	}

	if err := s.accounts.Delete(r.Context(), name); err != nil {
		s.writeAccountError(w, err, name)
		return
	}
	s.selection.ClearIf(name)
	s.logger.Info("account deleted", "account", name)
	w.WriteHeader(http.StatusNoContent)
}

// stopNodeAndWait stops the node and waits for it to exit so its data
// directory can be removed. It kills the node after accountStopTimeout.
func (s *Server) stopNodeAndWait(name string) error {
	exited := s.supervisor.ExitNotify()
	if err := s.supervisor.Shutdown(); err != nil {
		return err
	}
	select {
	case <-exited:
		return nil
	case <-time.After(accountStopTimeout):
		s.logger.Warn("node did not stop in time, killing", "account", name)
		return s.supervisor.ForceKill()
	}
}

// handleGetCurrentAccount returns the selected account name, or null.
func (s *Server) handleGetCurrentAccount(w http.ResponseWriter, _ *http.Request) {
	var name *string
	if current, ok := s.selection.Get(); ok {
		name = &current
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_name": name})
}

// handleSetCurrentAccount selects an existing account.
func (s *Server) handleSetCurrentAccount(w http.ResponseWriter, r *http.Request) {
	var req currentAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	exists, err := s.accounts.Exists(r.Context(), req.AccountName)
	if err != nil {
		s.writeAccountError(w, err, req.AccountName)
		return
	}
	if !exists {
		writeNotFound(w, "account not found")
		return
	}
	s.selection.Set(req.AccountName)
	writeJSON(w, http.StatusOK, map[string]any{"account_name": req.AccountName})
}

// handleClearCurrentAccount clears the selection.
func (s *Server) handleClearCurrentAccount(w http.ResponseWriter, _ *http.Request) {
	s.selection.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// handleStoreMnemonic encrypts a recovery phrase with the given password
// and stores it on the account, replacing any previous one.
func (s *Server) handleStoreMnemonic(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req storeMnemonicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	sealed, err := mnemonic.Encrypt(req.Mnemonic, req.Password)
	if err != nil {
		if errors.Is(err, mnemonic.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "mnemonic and password are required")
			return
		}
		s.logger.Error("encrypting mnemonic", "account", name, "error", err)
		writeInternalError(w, "failed to encrypt mnemonic")
		return
	}

	err = s.accounts.StoreEncryptedMnemonic(r.Context(), name, account.EncryptedMnemonic{
		Ciphertext: sealed.Ciphertext,
		Salt:       sealed.Salt,
		Nonce:      sealed.Nonce,
	})
	if err != nil {
		s.writeAccountError(w, err, name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRevealMnemonic decrypts the stored phrase with the given password.
func (s *Server) handleRevealMnemonic(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req revealMnemonicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	enc, err := s.accounts.GetEncryptedMnemonic(r.Context(), name)
	if err != nil {
		s.writeAccountError(w, err, name)
		return
	}

	phrase, err := mnemonic.Decrypt(mnemonic.Sealed{
		Ciphertext: enc.Ciphertext,
		Salt:       enc.Salt,
		Nonce:      enc.Nonce,
	}, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"mnemonic": phrase})
	case errors.Is(err, mnemonic.ErrDecryptionFailed), errors.Is(err, mnemonic.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, ErrCodeDecryptionFailed, "invalid password or corrupted data")
	default:
		s.logger.Error("decrypting mnemonic", "account", name, "error", err)
		writeInternalError(w, "failed to decrypt mnemonic")
	}
}

// writeAccountError maps account repository errors to responses.
func (s *Server) writeAccountError(w http.ResponseWriter, err error, name string) {
	switch {
	case errors.Is(err, account.ErrAccountNotFound):
		writeNotFound(w, "account not found")
	case errors.Is(err, account.ErrNoMnemonic):
		writeNotFound(w, "no mnemonic stored for account")
	case errors.Is(err, account.ErrAccountExists):
		writeConflict(w, "an account with this name already exists")
	case errors.Is(err, account.ErrInvalidAccount):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error("account operation failed", "account", name, "error", err)
		writeInternalError(w, "account operation failed")
	}
}
