package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fundbook/internal/core"
	"fundbook/internal/storage"
)

const maxBodyBytes = 1 << 20

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	// A second decode catches trailing garbage after the JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body: trailing data")
		return false
	}
	return true
}

var validationErrs = []error{
	core.ErrInvalidDate, core.ErrInvalidAmount, core.ErrInvalidType,
	core.ErrEmptyUser, core.ErrEmptyCategory, core.ErrEmptyInvestor,
	core.ErrInvalidRate, core.ErrInvalidPeriod, core.ErrInvalidDuration,
	core.ErrInvestorType,
}

// writeServiceError maps domain and storage errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, verr := range validationErrs {
		if errors.Is(err, verr) {
			writeError(w, http.StatusUnprocessableEntity, verr.Error())
			return
		}
	}
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	slog.ErrorContext(r.Context(), "Request failed", "url", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

type createUserRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	u := core.User{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	if err := s.users.CreateUser(r.Context(), u); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []core.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// transactionRequest is the write payload. Amounts arrive as decimal
// strings ("1234.50") and are stored as cents.
type transactionRequest struct {
	UserID      string           `json:"user_id"`
	Amount      string           `json:"amount"`
	Type        string           `json:"type"`
	Category    string           `json:"category"`
	PaymentMode string           `json:"payment_mode"`
	Date        string           `json:"date"`
	Note        string           `json:"note"`
	Investor    *investorRequest `json:"investor"`
}

type investorRequest struct {
	Name           string  `json:"name"`
	AnnualRatePct  float64 `json:"annual_rate_pct"`
	Period         string  `json:"period"`
	DurationMonths int     `json:"duration_months"`
	Purpose        string  `json:"purpose"`
	PeriodicAmount string  `json:"periodic_amount"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		return core.Transaction{}, core.ErrInvalidDate
	}

	t := core.Transaction{
		UserID:      strings.TrimSpace(req.UserID),
		Amount:      core.Money{Cents: cents},
		Type:        core.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Category:    strings.TrimSpace(req.Category),
		PaymentMode: strings.TrimSpace(req.PaymentMode),
		Date:        core.DateOf(date),
		Note:        strings.TrimSpace(req.Note),
	}

	if req.Investor != nil {
		inv := &core.InvestorDetails{
			Name:           strings.TrimSpace(req.Investor.Name),
			AnnualRatePct:  req.Investor.AnnualRatePct,
			Period:         core.ReturnPeriod(strings.ToLower(strings.TrimSpace(req.Investor.Period))),
			DurationMonths: req.Investor.DurationMonths,
			Purpose:        strings.TrimSpace(req.Investor.Purpose),
		}
		if v := strings.TrimSpace(req.Investor.PeriodicAmount); v != "" {
			pc, err := core.ParseDecimalToCents(v)
			if err != nil {
				return core.Transaction{}, err
			}
			inv.PeriodicAmount = core.Money{Cents: pc}
		}
		t.Investor = inv
	}
	return t, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateUser(created.UserID, EventTransactionCreated, map[string]string{
		"id":      created.ID,
		"user_id": created.UserID,
	})
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	var (
		txs []core.Transaction
		err error
	)
	yearStr := strings.TrimSpace(r.URL.Query().Get("year"))
	monthStr := strings.TrimSpace(r.URL.Query().Get("month"))
	if yearStr != "" || monthStr != "" {
		year, yerr := strconv.Atoi(yearStr)
		month, merr := strconv.Atoi(monthStr)
		if yerr != nil || merr != nil || month < 1 || month > 12 {
			writeError(w, http.StatusBadRequest, "year and month must be numbers, month between 1 and 12")
			return
		}
		txs, err = s.transactions.ListMonth(r.Context(), userID, year, month)
	} else {
		txs, err = s.transactions.List(r.Context(), userID)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.transactions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	t.ID = r.PathValue("id")

	if err := s.transactions.Update(r.Context(), t); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateUser(t.UserID, EventTransactionUpdated, map[string]string{
		"id":      t.ID,
		"user_id": t.UserID,
	})
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Load first so the invalidation knows which user's caches to drop.
	t, err := s.transactions.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.transactions.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	s.invalidateUser(t.UserID, EventTransactionDeleted, map[string]string{
		"id":      id,
		"user_id": t.UserID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	groups, err := s.categories.ListCategoryGroups(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if groups == nil {
		groups = []core.CategoryGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

type replaceGroupRequest struct {
	Labels []string `json:"labels"`
}

// handleReplaceCategoryGroup rewrites one group's label list in order.
func (s *Server) handleReplaceCategoryGroup(w http.ResponseWriter, r *http.Request) {
	group := strings.TrimSpace(r.PathValue("group"))
	var req replaceGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g := core.CategoryGroup{Name: group, Labels: req.Labels}
	if err := g.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.categories.ReplaceCategoryGroup(r.Context(), g); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type addLabelRequest struct {
	Label string `json:"label"`
}

func (s *Server) handleAddCategoryLabel(w http.ResponseWriter, r *http.Request) {
	group := strings.TrimSpace(r.PathValue("group"))
	var req addLabelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	label := strings.TrimSpace(req.Label)
	if group == "" || label == "" {
		writeError(w, http.StatusUnprocessableEntity, "group and label are required")
		return
	}
	if err := s.categories.AddCategoryLabel(r.Context(), group, label); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"group": group, "label": label})
}

func (s *Server) handleInvestorLedgers(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	if ledgers, ok := s.ledgerCache.Get(userID); ok {
		slog.DebugContext(r.Context(), "Ledger cache hit", "user_id", userID)
		writeJSON(w, http.StatusOK, ledgers)
		return
	}

	ledgers, err := s.ledgers.InvestorLedgers(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ledgers == nil {
		ledgers = []core.InvestorLedger{}
	}
	s.ledgerCache.Set(userID, ledgers)
	writeJSON(w, http.StatusOK, ledgers)
}

func (s *Server) handleInvestorCalendar(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}
	days := 0
	if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "days must be a non-negative number")
			return
		}
		days = d
	}

	events, err := s.ledgers.UpcomingCalendar(r.Context(), userID, days)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []core.ScheduleEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}
	overview, err := s.ledgers.BuildOverview(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be a number")
			return
		}
		year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
			return
		}
		month = m
	}

	key := reportCacheKey(userID, year, month)
	if report, ok := s.reportCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Report cache hit", "user_id", userID, "year", year, "month", month)
		writeJSON(w, http.StatusOK, report)
		return
	}

	report, err := s.ledgers.MonthReport(r.Context(), userID, year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.reportCache.Set(key, report)
	writeJSON(w, http.StatusOK, report)
}

type adviceRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	advice, err := s.ledgers.Advice(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"advice": advice})
}
