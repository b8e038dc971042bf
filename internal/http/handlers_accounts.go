package http

import (
	"net/http"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]apiAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAPIAccount(a))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req apiAccount
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account := req.toCore()
	account.ID = 0
	if err := account.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.CreateAccount(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusCreated, toAPIAccount(created))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	account, err := s.store.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAPIAccount(account))
}

// handleUpdateAccount is the administrative balance override: the stored
// balance is replaced verbatim, no ledger entry is written.
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req apiAccount
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account := req.toCore()
	account.ID = id
	if err := account.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateAccount(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusOK, toAPIAccount(updated))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusNoContent, nil)
}
