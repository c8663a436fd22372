package screen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

type watchCall struct {
	ctx context.Context
	day time.Time
	ch  chan storage.RangeUpdate
}

type fakeWatcher struct {
	mu    sync.Mutex
	calls []*watchCall
}

func (f *fakeWatcher) WatchDay(ctx context.Context, day time.Time) <-chan storage.RangeUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := &watchCall{ctx: ctx, day: day, ch: make(chan storage.RangeUpdate, 4)}
	f.calls = append(f.calls, call)
	return call.ch
}

func (f *fakeWatcher) call(i int) *watchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func (f *fakeWatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitForState(t *testing.T, c *Controller, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := c.State(); cond(s) {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state, last: %+v", c.State())
	return State{}
}

func TestSetDateAssertsLoadingBeforeData(t *testing.T) {
	watcher := &fakeWatcher{}
	c := NewController(watcher)
	defer c.Close()

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	c.SetDate(day)

	state := c.State()
	assert.True(t, state.Loading)
	assert.Empty(t, state.Display.Items)
	assert.Equal(t, "15 Mar 2024", state.DateLabel)
}

func TestUpdateClearsLoadingAndAggregates(t *testing.T) {
	watcher := &fakeWatcher{}
	c := NewController(watcher)
	defer c.Close()

	c.SetDate(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))

	watcher.call(0).ch <- storage.RangeUpdate{Expenses: []core.Expense{
		{ID: 1, Title: "Lunch", Amount: 12, Category: "Food", DateMillis: 1000},
	}}

	state := waitForState(t, c, func(s State) bool { return !s.Loading })
	require.Len(t, state.Display.Items, 1)
	assert.InDelta(t, 12, state.Display.TotalAmount, 1e-9)
	assert.Equal(t, 1, state.Display.TotalCount)
	assert.Empty(t, state.ErrMessage)
}

func TestLatestSelectionWins(t *testing.T) {
	watcher := &fakeWatcher{}
	c := NewController(watcher)
	defer c.Close()

	day1 := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)

	c.SetDate(day1)
	c.SetDate(day2)
	require.Equal(t, 2, watcher.callCount())

	// The superseded query's resources are released.
	assert.Error(t, watcher.call(0).ctx.Err(), "previous watch context should be cancelled")

	// A late result for the abandoned date is discarded.
	watcher.call(0).ch <- storage.RangeUpdate{Expenses: []core.Expense{
		{ID: 99, Title: "Stale", Amount: 1, Category: "Old", DateMillis: 1},
	}}

	watcher.call(1).ch <- storage.RangeUpdate{Expenses: []core.Expense{
		{ID: 2, Title: "Fresh", Amount: 5, Category: "New", DateMillis: 2},
	}}

	state := waitForState(t, c, func(s State) bool { return !s.Loading })
	assert.Equal(t, day2, state.Date)
	require.Len(t, state.Display.Items, 1)
	item, ok := state.Display.Items[0].(core.ExpenseItem)
	require.True(t, ok)
	assert.Equal(t, "Fresh", item.Expense.Title)
}

func TestErrorUpdateCarriesMessageAndEmptyList(t *testing.T) {
	watcher := &fakeWatcher{}
	c := NewController(watcher)
	defer c.Close()

	c.SetDate(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	watcher.call(0).ch <- storage.RangeUpdate{Err: errors.New("db locked")}

	state := waitForState(t, c, func(s State) bool { return !s.Loading })
	assert.Contains(t, state.ErrMessage, "db locked")
	assert.Empty(t, state.Display.Items)
	assert.Zero(t, state.Display.TotalCount)

	// Recovery: the stream stays alive and a later good update clears
	// the error.
	watcher.call(0).ch <- storage.RangeUpdate{Expenses: []core.Expense{
		{ID: 1, Title: "Lunch", Amount: 12, Category: "Food", DateMillis: 1000},
	}}
	state = waitForState(t, c, func(s State) bool { return s.ErrMessage == "" && len(s.Display.Items) == 1 })
	assert.Equal(t, 1, state.Display.TotalCount)
}

func TestSetGroupingRecomputesWithoutNewQuery(t *testing.T) {
	watcher := &fakeWatcher{}
	c := NewController(watcher)
	defer c.Close()

	c.SetDate(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	watcher.call(0).ch <- storage.RangeUpdate{Expenses: []core.Expense{
		{ID: 2, Title: "Dinner", Amount: 40, Category: "Food", DateMillis: 2000},
		{ID: 1, Title: "Bus", Amount: 2.5, Category: "Transport", DateMillis: 1000},
	}}
	waitForState(t, c, func(s State) bool { return !s.Loading })

	c.SetGrouping(core.GroupByCategory)

	state := c.State()
	require.Len(t, state.Display.Items, 2)
	_, ok := state.Display.Items[0].(core.GroupItem)
	assert.True(t, ok)
	assert.Equal(t, 1, watcher.callCount(), "regrouping must not re-query")
}

func TestUpdatesConflateToLatest(t *testing.T) {
	watcher := &fakeWatcher{}
	c := NewController(watcher)
	defer c.Close()

	c.SetDate(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	watcher.call(0).ch <- storage.RangeUpdate{Expenses: []core.Expense{
		{ID: 1, Title: "a", Amount: 1, Category: "c", DateMillis: 1},
	}}
	watcher.call(0).ch <- storage.RangeUpdate{Expenses: []core.Expense{
		{ID: 1, Title: "a", Amount: 1, Category: "c", DateMillis: 1},
		{ID: 2, Title: "b", Amount: 2, Category: "c", DateMillis: 2},
	}}
	waitForState(t, c, func(s State) bool { return s.Display.TotalCount == 2 })

	// A slow reader sees only the newest snapshot.
	select {
	case state := <-c.Updates():
		assert.Equal(t, 2, state.Display.TotalCount)
	case <-time.After(time.Second):
		t.Fatal("expected a pending snapshot")
	}
}
