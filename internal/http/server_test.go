package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/prefs"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.Open(filepath.Join(dir, "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	prefStore, err := prefs.NewFileStore(filepath.Join(dir, "prefs.json"))
	require.NoError(t, err)

	service := services.NewExpenseService(store, nil)
	return NewServer(":0", service, prefStore)
}

func postExpense(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateExpense(t *testing.T) {
	srv := newTestServer(t)

	rec := postExpense(t, srv.Handler,
		`{"title":"Lunch","amount":250,"category":"Food","notes":"team","date":1710500000000}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp expenseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Positive(t, resp.ID)
	assert.Equal(t, "Lunch", resp.Title)
	assert.Equal(t, int64(1710500000000), resp.Date)
}

func TestCreateExpenseValidation(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"blank title", `{"title":"","amount":10}`},
		{"zero amount", `{"title":"Lunch","amount":0}`},
		{"negative amount", `{"title":"Lunch","amount":-1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postExpense(t, srv.Handler, tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestDayRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	day := time.Date(2024, 3, 15, 13, 0, 0, 0, time.Local)
	body := fmt.Sprintf(`{"title":"Lunch","amount":250,"category":"Food","date":%d}`, day.UnixMilli())
	require.Equal(t, http.StatusCreated, postExpense(t, srv.Handler, body).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/expenses/day?date=2024-03-15", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp displayModelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "expense", resp.Items[0].Type)
	assert.Equal(t, "Lunch", resp.Items[0].Expense.Title)
	assert.Equal(t, 1, resp.TotalCount)
	assert.InDelta(t, 250, resp.TotalAmount, 1e-9)
}

func TestDayGroupedByCategory(t *testing.T) {
	srv := newTestServer(t)

	day := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	for _, e := range []string{
		fmt.Sprintf(`{"title":"Lunch","amount":12,"category":"Food","date":%d}`, day.Add(3*time.Hour).UnixMilli()),
		fmt.Sprintf(`{"title":"Dinner","amount":40,"category":"Food","date":%d}`, day.Add(10*time.Hour).UnixMilli()),
		fmt.Sprintf(`{"title":"Bus","amount":2.5,"category":"Transport","date":%d}`, day.UnixMilli()),
	} {
		require.Equal(t, http.StatusCreated, postExpense(t, srv.Handler, e).Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/expenses/day?date=2024-03-15&group=category", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp displayModelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "group", resp.Items[0].Type)
	assert.Equal(t, "Food", resp.Items[0].Group.Title)
	assert.Equal(t, "Transport", resp.Items[1].Group.Title)
	assert.Equal(t, "Dinner", resp.Items[0].Group.Expenses[0].Title, "group members newest first")
	assert.Equal(t, 3, resp.TotalCount)
	assert.InDelta(t, 54.5, resp.TotalAmount, 1e-9)
}

func TestDayCacheInvalidatedOnCreate(t *testing.T) {
	srv := newTestServer(t)

	day := time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)

	fetch := func() displayModelResponse {
		req := httptest.NewRequest(http.MethodGet, "/api/expenses/day?date=2024-03-15", nil)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp displayModelResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	assert.Equal(t, 0, fetch().TotalCount)

	body := fmt.Sprintf(`{"title":"Lunch","amount":250,"category":"Food","date":%d}`, day.UnixMilli())
	require.Equal(t, http.StatusCreated, postExpense(t, srv.Handler, body).Code)

	assert.Equal(t, 1, fetch().TotalCount, "cached empty model must be invalidated by the insert")
}

func TestDayTotal(t *testing.T) {
	srv := newTestServer(t)

	day := time.Date(2024, 3, 15, 12, 0, 0, 0, time.Local)
	for _, amount := range []float64{10, 20.5} {
		body := fmt.Sprintf(`{"title":"e","amount":%g,"category":"c","date":%d}`, amount, day.UnixMilli())
		require.Equal(t, http.StatusCreated, postExpense(t, srv.Handler, body).Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/expenses/day/total?date=2024-03-15", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Date  string  `json:"date"`
		Total float64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024-03-15", resp.Date)
	assert.InDelta(t, 30.5, resp.Total, 1e-9)
}

func TestDayParamValidation(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/api/expenses/day",
		"/api/expenses/day?date=15-03-2024",
		"/api/expenses/day?date=2024-03-15&group=week",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestWatchDayStreamsSnapshots(t *testing.T) {
	srv := newTestServer(t)

	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		ts.URL+"/api/expenses/day/watch?date=2024-03-15", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var payload string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			payload = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	require.NotEmpty(t, payload, "expected at least one snapshot")

	var state screenStateResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &state))
	assert.Equal(t, "2024-03-15", state.Date)
	assert.Equal(t, 0, state.Display.TotalCount)
}

func TestThemePreferences(t *testing.T) {
	srv := newTestServer(t)

	get := func() string {
		req := httptest.NewRequest(http.MethodGet, "/api/preferences/theme", nil)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Theme string `json:"theme"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.Theme
	}

	assert.Equal(t, "system", get())

	req := httptest.NewRequest(http.MethodPut, "/api/preferences/theme",
		bytes.NewBufferString(`{"theme":"dark"}`))
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "dark", get())

	req = httptest.NewRequest(http.MethodPut, "/api/preferences/theme",
		bytes.NewBufferString(`{"theme":"neon"}`))
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
