// expensectl is a small maintenance CLI that works directly against the
// local expense database: add an expense, list a day (flat or grouped),
// print a day's total.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

var dbPath string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "expensectl",
		Short: "Manage the local expense database",
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.Load().SQLiteDBPath,
		"path to the sqlite database")

	rootCmd.AddCommand(newAddCmd(), newListCmd(), newTotalCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openService() (*services.ExpenseService, *storage.SQLiteStore, error) {
	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return services.NewExpenseService(store, nil), store, nil
}

func parseDayFlag(v string) (time.Time, error) {
	if v == "" {
		return time.Now(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", v)
	}
	return day, nil
}

func newAddCmd() *cobra.Command {
	var (
		title    string
		amount   float64
		category string
		notes    string
		date     string
		receipt  string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add one expense",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDayFlag(date)
			if err != nil {
				return err
			}

			service, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			saved, err := service.AddExpense(cmd.Context(), core.Expense{
				Title:           title,
				Amount:          amount,
				Category:        category,
				Notes:           notes,
				DateMillis:      day.UnixMilli(),
				ReceiptImageURI: receipt,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Added expense #%d: %s — %.2f (%s)\n",
				saved.ID, saved.Title, saved.Amount, saved.Category)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "expense title (required)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "expense amount (required, > 0)")
	cmd.Flags().StringVar(&category, "category", "", "category label")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text notes")
	cmd.Flags().StringVar(&date, "date", "", "occurrence date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&receipt, "receipt", "", "receipt image URI")

	return cmd
}

func newListCmd() *cobra.Command {
	var (
		date    string
		grouped bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a day's expenses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDayFlag(date)
			if err != nil {
				return err
			}

			service, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			expenses, err := service.ExpensesForDay(cmd.Context(), day)
			if err != nil {
				return err
			}

			mode := core.GroupNone
			if grouped {
				mode = core.GroupByCategory
			}
			model := core.Aggregate(expenses, mode)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, item := range model.Items {
				switch v := item.(type) {
				case core.ExpenseItem:
					printExpense(w, v.Expense)
				case core.GroupItem:
					title := v.Group.Title
					if title == "" {
						title = "(uncategorized)"
					}
					fmt.Fprintf(w, "%s\t%d items\t%.2f\n", title, v.Group.TotalCount, v.Group.TotalAmount)
					for _, e := range v.Group.Expenses {
						printExpense(w, e)
					}
				}
			}
			fmt.Fprintf(w, "TOTAL\t%d items\t%.2f\n", model.TotalCount, model.TotalAmount)
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to list as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&grouped, "grouped", false, "group by category")

	return cmd
}

func printExpense(w *tabwriter.Writer, e core.Expense) {
	fmt.Fprintf(w, "  #%d\t%s\t%.2f\t%s\t%s\n",
		e.ID,
		e.Title,
		e.Amount,
		e.Category,
		time.UnixMilli(e.DateMillis).Format("15:04"))
}

func newTotalCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "total",
		Short: "Print a day's total",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDayFlag(date)
			if err != nil {
				return err
			}

			service, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			total, err := service.TotalForDay(cmd.Context(), day)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %.2f\n", day.Format("2006-01-02"), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to total as YYYY-MM-DD (default today)")

	return cmd
}
