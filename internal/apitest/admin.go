package apitest

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/evcharge-client/users"
)

func (s *Server) PendingHostsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending := s.accounts.ListByRole(users.RolePendingHost)
		out := make([]users.PendingHost, 0, len(pending))
		for _, acct := range pending {
			out = append(out, users.PendingHost{
				UserID:    acct.ID,
				FirstName: acct.FirstName,
				LastName:  acct.LastName,
				Email:     acct.Email,
				Phone:     acct.Phone,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) ApproveHostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct, ok := s.pendingHostFromPath(w, r)
		if !ok {
			return
		}
		if err := s.accounts.SetRole(acct.ID, users.RoleHost); err != nil {
			writeMessage(w, http.StatusNotFound, "Host not found")
			return
		}
		writeMessage(w, http.StatusOK, "Host approved successfully")
	}
}

func (s *Server) RejectHostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct, ok := s.pendingHostFromPath(w, r)
		if !ok {
			return
		}
		if err := s.accounts.Delete(acct.ID); err != nil {
			writeMessage(w, http.StatusNotFound, "Host not found")
			return
		}
		writeMessage(w, http.StatusOK, "Host rejected and removed")
	}
}

func (s *Server) pendingHostFromPath(w http.ResponseWriter, r *http.Request) (*account, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid host id")
		return nil, false
	}
	acct, err := s.accounts.GetByID(id)
	if err != nil || acct.Role != users.RolePendingHost {
		writeMessage(w, http.StatusNotFound, "Pending host not found")
		return nil, false
	}
	return acct, true
}
