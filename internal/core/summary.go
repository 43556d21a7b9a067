package core

import (
	"sort"
	"time"
)

// RecentLimit caps the recent-activity view. A fixed constant stands in
// for a server-side paginated query until the backing store grows a
// composite (userId, date) index; it is not a product requirement.
const RecentLimit = 5

// BalanceSummary is the derived {income, expenses, total} aggregate for one
// user's full transaction set. It is never persisted or independently
// mutated; Total == Income − Expenses holds exactly in integer cents.
type BalanceSummary struct {
	Income   Money
	Expenses Money
	Total    Money
}

// DayGroup is one bucket of the recent view, labeled "Today", "Yesterday"
// or a short month/day form such as "Mar 5".
type DayGroup struct {
	Label string
	Items []Transaction
}

// RecentView is the date-grouped, recency-limited slice of a user's
// transactions shown on the dashboard.
type RecentView []DayGroup

// Summarize computes the balance summary over every record and the grouped
// recent view over the RecentLimit most recent ones, relative to now.
//
// Totals are a single linear pass and order-independent. Ordering is by
// normalized date descending; records whose date cannot be resolved sort
// last. Equal dates keep their input order (stable sort). A nil record set
// yields zeroed totals and an empty view.
func Summarize(records []Transaction, now time.Time) (BalanceSummary, RecentView) {
	var sum BalanceSummary
	for _, tx := range records {
		if tx.Type == Income {
			sum.Income = sum.Income.Add(tx.Amount)
		} else {
			sum.Expenses = sum.Expenses.Add(tx.Amount)
		}
	}
	sum.Total = sum.Income.Sub(sum.Expenses)

	if len(records) == 0 {
		return sum, RecentView{}
	}

	sorted := make([]Transaction, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, _ := sorted[i].Date.Resolve()
		tj, _ := sorted[j].Date.Resolve()
		return ti.After(tj)
	})

	if len(sorted) > RecentLimit {
		sorted = sorted[:RecentLimit]
	}

	return sum, groupByDay(sorted, now)
}

// groupByDay partitions an already-sorted sequence into labeled buckets.
// Buckets are keyed by label, not by run: dates from different years that
// share a month/day form land in one bucket. Buckets appear in the order
// their first member does.
func groupByDay(sorted []Transaction, now time.Time) RecentView {
	view := RecentView{}
	index := make(map[string]int, len(sorted))
	for _, tx := range sorted {
		label := DayLabel(tx.Date, now)
		if i, ok := index[label]; ok {
			view[i].Items = append(view[i].Items, tx)
			continue
		}
		index[label] = len(view)
		view = append(view, DayGroup{Label: label, Items: []Transaction{tx}})
	}
	return view
}

// DayLabel derives the human bucket label for a transaction date relative
// to now: "Today", "Yesterday", a short month/day form, or "Unknown date"
// when the date cannot be resolved.
func DayLabel(d DateValue, now time.Time) string {
	t, ok := d.Resolve()
	if !ok {
		return "Unknown date"
	}
	if d.SameDay(now) {
		return "Today"
	}
	if d.SameDay(now.AddDate(0, 0, -1)) {
		return "Yesterday"
	}
	return t.Format("Jan 2")
}
