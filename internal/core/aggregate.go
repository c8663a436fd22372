package core

import "sort"

// GroupingMode selects whether aggregation output is flat or
// partitioned by category.
type GroupingMode int

const (
	GroupNone GroupingMode = iota
	GroupByCategory
)

// ExpenseGroup is the per-category partition produced by Aggregate.
// It is derived, never persisted, and recomputed on every pass.
type ExpenseGroup struct {
	Title       string
	Expenses    []Expense
	TotalAmount float64
	TotalCount  int
}

// DisplayItem is a sum type with exactly two variants, ExpenseItem and
// GroupItem, so consumers switch on the concrete type instead of
// inspecting runtime contents.
type DisplayItem interface {
	displayItem()
}

type ExpenseItem struct {
	Expense Expense
}

type GroupItem struct {
	Group ExpenseGroup
}

func (ExpenseItem) displayItem() {}
func (GroupItem) displayItem()   {}

// DisplayModel is the computed, read-only structure consumed by
// presentation: ordered display items plus overall totals.
type DisplayModel struct {
	Items       []DisplayItem
	TotalAmount float64
	TotalCount  int
}

// Aggregate computes the display model for a list of expenses.
//
// Overall totals always cover the full input regardless of mode. With
// GroupNone the input order is preserved (range queries already return
// date descending). With GroupByCategory expenses are partitioned on
// exact category match (a blank category is its own group), each group's
// members are sorted by date descending, and groups are ordered by title
// ascending.
//
// Pure function: no I/O, no clock, deterministic for a given input.
func Aggregate(expenses []Expense, mode GroupingMode) DisplayModel {
	model := DisplayModel{
		Items:      make([]DisplayItem, 0, len(expenses)),
		TotalCount: len(expenses),
	}
	for _, e := range expenses {
		model.TotalAmount += e.Amount
	}

	switch mode {
	case GroupByCategory:
		model.Items = groupByCategory(expenses)
	default:
		for _, e := range expenses {
			model.Items = append(model.Items, ExpenseItem{Expense: e})
		}
	}

	return model
}

func groupByCategory(expenses []Expense) []DisplayItem {
	byCategory := make(map[string][]Expense, len(expenses))
	for _, e := range expenses {
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}

	titles := make([]string, 0, len(byCategory))
	for title := range byCategory {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	items := make([]DisplayItem, 0, len(titles))
	for _, title := range titles {
		members := byCategory[title]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].DateMillis > members[j].DateMillis
		})

		group := ExpenseGroup{
			Title:      title,
			Expenses:   members,
			TotalCount: len(members),
		}
		for _, e := range members {
			group.TotalAmount += e.Amount
		}
		items = append(items, GroupItem{Group: group})
	}

	return items
}
