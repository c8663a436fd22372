package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/prefs"
	"expensetracker/internal/screen"
)

const dayParamFormat = "2006-01-02"

type expenseRequest struct {
	Title           string  `json:"title"`
	Amount          float64 `json:"amount"`
	Category        string  `json:"category"`
	Notes           string  `json:"notes"`
	Date            int64   `json:"date"`
	ReceiptImageURI string  `json:"receipt_image_uri,omitempty"`
}

type expenseResponse struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Amount          float64 `json:"amount"`
	Category        string  `json:"category"`
	Notes           string  `json:"notes"`
	Date            int64   `json:"date"`
	ReceiptImageURI string  `json:"receipt_image_uri,omitempty"`
}

type groupResponse struct {
	Title       string            `json:"title"`
	Expenses    []expenseResponse `json:"expenses"`
	TotalAmount float64           `json:"total_amount"`
	TotalCount  int               `json:"total_count"`
}

type displayItemResponse struct {
	Type    string           `json:"type"`
	Expense *expenseResponse `json:"expense,omitempty"`
	Group   *groupResponse   `json:"group,omitempty"`
}

type displayModelResponse struct {
	Items       []displayItemResponse `json:"items"`
	TotalAmount float64               `json:"total_amount"`
	TotalCount  int                   `json:"total_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:              e.ID,
		Title:           e.Title,
		Amount:          e.Amount,
		Category:        e.Category,
		Notes:           e.Notes,
		Date:            e.DateMillis,
		ReceiptImageURI: e.ReceiptImageURI,
	}
}

func toDisplayModelResponse(model core.DisplayModel) displayModelResponse {
	resp := displayModelResponse{
		Items:       make([]displayItemResponse, 0, len(model.Items)),
		TotalAmount: model.TotalAmount,
		TotalCount:  model.TotalCount,
	}
	for _, item := range model.Items {
		switch v := item.(type) {
		case core.ExpenseItem:
			e := toExpenseResponse(v.Expense)
			resp.Items = append(resp.Items, displayItemResponse{Type: "expense", Expense: &e})
		case core.GroupItem:
			g := groupResponse{
				Title:       v.Group.Title,
				Expenses:    make([]expenseResponse, 0, len(v.Group.Expenses)),
				TotalAmount: v.Group.TotalAmount,
				TotalCount:  v.Group.TotalCount,
			}
			for _, e := range v.Group.Expenses {
				g.Expenses = append(g.Expenses, toExpenseResponse(e))
			}
			resp.Items = append(resp.Items, displayItemResponse{Type: "group", Group: &g})
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func parseDayParam(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return time.Time{}, fmt.Errorf("missing date parameter")
	}
	day, err := time.ParseInLocation(dayParamFormat, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", v)
	}
	return day, nil
}

func parseGroupParam(r *http.Request) (core.GroupingMode, error) {
	switch r.URL.Query().Get("group") {
	case "", "none":
		return core.GroupNone, nil
	case "category":
		return core.GroupByCategory, nil
	default:
		return core.GroupNone, fmt.Errorf("invalid group parameter: expected 'none' or 'category'")
	}
}

func dayCacheKey(day time.Time, mode core.GroupingMode) string {
	return fmt.Sprintf("%s|%d", day.Format(dayParamFormat), mode)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date := req.Date
	if date == 0 {
		date = time.Now().UnixMilli()
	}

	expense := core.Expense{
		Title:           req.Title,
		Amount:          req.Amount,
		Category:        req.Category,
		Notes:           req.Notes,
		DateMillis:      date,
		ReceiptImageURI: req.ReceiptImageURI,
	}

	saved, err := s.service.AddExpense(r.Context(), expense)
	if err != nil {
		if errors.Is(err, core.ErrBlankTitle) || errors.Is(err, core.ErrInvalidAmount) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to save expense",
			"title", expense.Title,
			"amount", expense.Amount,
			"error", err)
		writeError(w, http.StatusInternalServerError, "error saving expense")
		return
	}

	s.invalidateDay(time.UnixMilli(saved.DateMillis))

	writeJSON(w, http.StatusCreated, toExpenseResponse(saved))
}

func (s *Server) invalidateDay(day time.Time) {
	s.dayCache.Delete(dayCacheKey(day, core.GroupNone))
	s.dayCache.Delete(dayCacheKey(day, core.GroupByCategory))
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	day, err := parseDayParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := parseGroupParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := dayCacheKey(day, mode)
	if model, ok := s.dayCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toDisplayModelResponse(model))
		return
	}

	expenses, err := s.service.ExpensesForDay(r.Context(), day)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to fetch expenses for day",
			"date", day.Format(dayParamFormat),
			"error", err)
		writeError(w, http.StatusInternalServerError, "error fetching expenses")
		return
	}

	model := core.Aggregate(expenses, mode)
	s.dayCache.Set(key, model)

	writeJSON(w, http.StatusOK, toDisplayModelResponse(model))
}

func (s *Server) handleDayTotal(w http.ResponseWriter, r *http.Request) {
	day, err := parseDayParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	total, err := s.service.TotalForDay(r.Context(), day)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute day total",
			"date", day.Format(dayParamFormat),
			"error", err)
		writeError(w, http.StatusInternalServerError, "error computing total")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":  day.Format(dayParamFormat),
		"total": total,
	})
}

type screenStateResponse struct {
	Date      string               `json:"date"`
	DateLabel string               `json:"date_label"`
	Loading   bool                 `json:"loading"`
	Error     string               `json:"error,omitempty"`
	Display   displayModelResponse `json:"display"`
}

// handleWatchDay streams screen-state snapshots for one day as
// server-sent events. Each snapshot is a full display model; the client
// disconnecting tears down the underlying live query.
func (s *Server) handleWatchDay(w http.ResponseWriter, r *http.Request) {
	day, err := parseDayParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := parseGroupParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctrl := screen.NewController(s.service)
	defer ctrl.Close()
	ctrl.SetGrouping(mode)
	ctrl.SetDate(day)

	for {
		select {
		case <-r.Context().Done():
			return
		case state := <-ctrl.Updates():
			resp := screenStateResponse{
				Date:      state.Date.Format(dayParamFormat),
				DateLabel: state.DateLabel,
				Loading:   state.Loading,
				Error:     state.ErrMessage,
				Display:   toDisplayModelResponse(state.Display),
			}
			payload, err := json.Marshal(resp)
			if err != nil {
				slog.ErrorContext(r.Context(), "Failed to marshal screen state", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleGetTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"theme": string(s.prefs.Theme())})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.prefs.SetTheme(prefs.Theme(req.Theme)); err != nil {
		if errors.Is(err, prefs.ErrUnknownTheme) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to save theme", "error", err)
		writeError(w, http.StatusInternalServerError, "error saving theme")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"theme": req.Theme})
}
