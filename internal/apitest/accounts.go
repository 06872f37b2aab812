package apitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/evcharge-client/users"
)

const createdAtLayout = "2006-01-02T15:04:05"

type account struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         users.Role
	CreatedAt    time.Time
}

// Account describes a seeded account
type Account struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      users.Role
}

type accountRepo struct {
	lock     sync.RWMutex
	nextID   int64
	accounts map[int64]*account
	emailIDs map[string]int64
}

var errAccountNotFound = errors.New("not found")

func newAccountRepo() *accountRepo {
	return &accountRepo{
		accounts: make(map[int64]*account),
		emailIDs: make(map[string]int64),
	}
}

func (ar *accountRepo) Insert(acct *account) (int64, error) {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	key := strings.ToLower(acct.Email)
	if _, exists := ar.emailIDs[key]; exists {
		return 0, errors.New("email already registered")
	}
	ar.nextID++
	acct.ID = ar.nextID
	ar.accounts[acct.ID] = acct
	ar.emailIDs[key] = acct.ID
	return acct.ID, nil
}

func (ar *accountRepo) GetByEmail(email string) (*account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	id, ok := ar.emailIDs[strings.ToLower(email)]
	if !ok {
		return nil, errAccountNotFound
	}
	return ar.accounts[id], nil
}

func (ar *accountRepo) GetByID(id int64) (*account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	acct, ok := ar.accounts[id]
	if !ok {
		return nil, errAccountNotFound
	}
	return acct, nil
}

func (ar *accountRepo) Delete(id int64) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	acct, ok := ar.accounts[id]
	if !ok {
		return errAccountNotFound
	}
	delete(ar.emailIDs, strings.ToLower(acct.Email))
	delete(ar.accounts, id)
	return nil
}

func (ar *accountRepo) SetRole(id int64, role users.Role) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	acct, ok := ar.accounts[id]
	if !ok {
		return errAccountNotFound
	}
	acct.Role = role
	return nil
}

func (ar *accountRepo) ListByRole(role users.Role) []*account {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	list := make([]*account, 0)
	for _, acct := range ar.accounts {
		if acct.Role == role {
			list = append(list, acct)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// AddAccount seeds an account and returns its id.
func (s *Server) AddAccount(a Account) int64 {
	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	id, err := s.accounts.Insert(&account{
		Email:        a.Email,
		PasswordHash: string(hash),
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Phone:        a.Phone,
		Role:         a.Role,
		CreatedAt:    s.now(),
	})
	if err != nil {
		panic(err)
	}
	return id
}

// AccountRole reports the current role of an account, "" when it does not exist.
func (s *Server) AccountRole(id int64) users.Role {
	acct, err := s.accounts.GetByID(id)
	if err != nil {
		return ""
	}
	return acct.Role
}

// IssueToken signs a credential for an existing account.
func (s *Server) IssueToken(id int64) string {
	acct, err := s.accounts.GetByID(id)
	if err != nil {
		panic(err)
	}
	token, err := s.tokens.Issue(acct)
	if err != nil {
		panic(err)
	}
	return token
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Malformed request body")
			return
		}

		acct, err := s.accounts.GetByEmail(req.Email)
		if err != nil || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)) != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		if acct.Role == users.RolePendingHost {
			const msg = "Your host account is awaiting admin approval."
			if s.pendingAsForbidden.Load() {
				writeMessage(w, http.StatusForbidden, msg)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"role": string(acct.Role), "message": msg})
			return
		}

		token, err := s.tokens.Issue(acct)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"token":     token,
			"role":      string(acct.Role),
			"email":     acct.Email,
			"firstName": acct.FirstName,
			"lastName":  acct.LastName,
			"phone":     acct.Phone,
			"createdAt": acct.CreatedAt.Format(createdAtLayout),
		})
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" || req.Phone == "" {
			writeMessage(w, http.StatusBadRequest, "All fields are required")
			return
		}

		role, err := users.ParseRole(req.Role)
		if err != nil || !role.Registrable() {
			writeMessage(w, http.StatusBadRequest, "Invalid role")
			return
		}
		message := "User registered successfully"
		if role == users.RoleHost {
			role = users.RolePendingHost
			message = "Host registration submitted. Awaiting admin approval."
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, err.Error())
			return
		}
		if _, err := s.accounts.Insert(&account{
			Email:        req.Email,
			PasswordHash: string(hash),
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
			Role:         role,
			CreatedAt:    s.now(),
		}); err != nil {
			writeMessage(w, http.StatusBadRequest, "Email already registered")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"role": string(role), "message": message})
	}
}

// RefreshHandler exchanges a stale but correctly signed credential for a new one.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.refreshCount.Add(1)
		if s.failRefresh.Load() {
			writeMessage(w, http.StatusUnauthorized, "Refresh denied")
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
			return
		}
		claims, err := s.tokens.VerifyStale(token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		acct, err := s.accounts.GetByID(claims.UserID)
		if err != nil || acct.Role == users.RolePendingHost {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		fresh, err := s.tokens.Issue(acct)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": fresh})
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct := accountFrom(r)
		writeJSON(w, http.StatusOK, users.Profile{
			ID:        acct.ID,
			FirstName: acct.FirstName,
			LastName:  acct.LastName,
			Email:     acct.Email,
			Phone:     acct.Phone,
			Role:      acct.Role,
			CreatedAt: acct.CreatedAt.Format(createdAtLayout),
		})
	}
}
