// Package screen assembles the expense-list screen state: the latest
// values of the selected date, grouping mode, live expense list, loading
// flag and error message combined into one immutable snapshot whenever
// any of them changes.
package screen

import (
	"context"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

const dateLabelFormat = "02 Jan 2006"

// RangeWatcher is the retrieval surface the controller needs.
// *services.ExpenseService satisfies it.
type RangeWatcher interface {
	WatchDay(ctx context.Context, day time.Time) <-chan storage.RangeUpdate
}

// State is one immutable screen snapshot.
type State struct {
	Date       time.Time
	DateLabel  string
	Grouping   core.GroupingMode
	Display    core.DisplayModel
	Loading    bool
	ErrMessage string
}

// Controller owns one screen's state. Selecting a new date cancels the
// previous live query and starts a fresh one; updates from a superseded
// query are discarded even if they arrive late (latest wins), so stale
// data is never shown under the new date's label.
type Controller struct {
	watcher RangeWatcher
	updates chan State

	mu     sync.Mutex
	gen    int
	cancel context.CancelFunc
	raw    []core.Expense
	state  State
}

func NewController(watcher RangeWatcher) *Controller {
	return &Controller{
		watcher: watcher,
		updates: make(chan State, 1),
		state:   State{Loading: true},
	}
}

// SetDate switches the screen to day's calendar date. The loading flag
// is asserted with cleared items before any new data arrives.
func (c *Controller) SetDate(day time.Time) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.gen++
	gen := c.gen

	c.raw = nil
	c.state = State{
		Date:      day,
		DateLabel: day.Format(dateLabelFormat),
		Grouping:  c.state.Grouping,
		Display:   core.Aggregate(nil, c.state.Grouping),
		Loading:   true,
	}
	c.publishLocked()
	c.mu.Unlock()

	go c.consume(ctx, gen, c.watcher.WatchDay(ctx, day))
}

func (c *Controller) consume(ctx context.Context, gen int, in <-chan storage.RangeUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-in:
			if !ok {
				return
			}
			c.apply(gen, update)
		}
	}
}

func (c *Controller) apply(gen int, update storage.RangeUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Superseded selection: the result belongs to a date the user has
	// already navigated away from.
	if gen != c.gen {
		return
	}

	c.state.Loading = false
	if update.Err != nil {
		c.raw = nil
		c.state.ErrMessage = "error fetching expenses: " + update.Err.Error()
	} else {
		c.raw = update.Expenses
		c.state.ErrMessage = ""
	}
	c.state.Display = core.Aggregate(c.raw, c.state.Grouping)
	c.publishLocked()
}

// SetGrouping recomputes the display from the last received list without
// touching storage.
func (c *Controller) SetGrouping(mode core.GroupingMode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Grouping == mode {
		return
	}
	c.state.Grouping = mode
	c.state.Display = core.Aggregate(c.raw, mode)
	c.publishLocked()
}

// ClearError drops the current error message, if any.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.ErrMessage == "" {
		return
	}
	c.state.ErrMessage = ""
	c.publishLocked()
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Updates delivers snapshots, conflated to the latest: a slow reader
// observes the newest state, never a backlog of stale ones.
func (c *Controller) Updates() <-chan State {
	return c.updates
}

// Close releases the active live query. The controller must not be used
// afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
}

func (c *Controller) publishLocked() {
	select {
	case <-c.updates:
	default:
	}
	c.updates <- c.state
}
