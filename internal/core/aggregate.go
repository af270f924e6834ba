package core

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

type (
	Granularity string

	// DayGroup collects the transactions of one calendar day.
	DayGroup struct {
		Day          string          `json:"date"`
		Income       decimal.Decimal `json:"income"`
		Expenses     decimal.Decimal `json:"expenses"`
		NetTotal     decimal.Decimal `json:"netTotal"`
		Transactions []Transaction   `json:"transactions"`
	}

	// Bucket is one period of a Series. Start and End are inclusive days.
	Bucket struct {
		Key      string          `json:"key"`
		Start    Date            `json:"start"`
		End      Date            `json:"end"`
		Income   decimal.Decimal `json:"income"`
		Expenses decimal.Decimal `json:"expenses"`
		NetTotal decimal.Decimal `json:"netTotal"`
	}

	// Series holds windowCount consecutive buckets, oldest first.
	Series struct {
		Granularity   Granularity       `json:"granularity"`
		Labels        []string          `json:"labels"`
		IncomeSeries  []decimal.Decimal `json:"incomeSeries"`
		ExpenseSeries []decimal.Decimal `json:"expenseSeries"`
		Buckets       []Bucket          `json:"buckets"`
	}

	CategoryRank struct {
		CategoryID string          `json:"categoryId"`
		Name       *string         `json:"name"`
		Type       TransactionType `json:"type"`
		Color      string          `json:"color"`
		Icon       string          `json:"icon"`
		Total      decimal.Decimal `json:"total"`
		Count      int             `json:"count"`
		Labels     []LabelRef      `json:"labels"`
	}

	LabelRank struct {
		LabelID string          `json:"labelId"`
		Name    *string         `json:"name"`
		Color   string          `json:"color"`
		Total   decimal.Decimal `json:"total"`
		Count   int             `json:"count"`
	}

	MonthSummary struct {
		Month            string          `json:"month"`
		Income           decimal.Decimal `json:"income"`
		Expenses         decimal.Decimal `json:"expenses"`
		NetBalance       decimal.Decimal `json:"netBalance"`
		TransactionCount int             `json:"totalTransactions"`
		Days             []DayGroup      `json:"days"`
	}

	MonthGroup struct {
		Month    string          `json:"month"`
		Income   decimal.Decimal `json:"income"`
		Expenses decimal.Decimal `json:"expenses"`
		NetTotal decimal.Decimal `json:"netTotal"`
		Days     []DayGroup      `json:"days"`
	}
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Week, Month, Year:
		return g, nil
	default:
		return "", NewValidationError("granularity", "must be one of week, month, year")
	}
}

// GroupByDay places every transaction in exactly one day group. Groups are
// ordered by day descending and keep the input order of their items.
func GroupByDay(txs []Transaction) []DayGroup {
	index := make(map[string]int)
	groups := make([]DayGroup, 0)
	for _, t := range txs {
		key := t.DayKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{
				Day:          key,
				Income:       decimal.Zero,
				Expenses:     decimal.Zero,
				Transactions: make([]Transaction, 0),
			})
		}
		g := &groups[i]
		addAmount(t, &g.Income, &g.Expenses)
		g.Transactions = append(g.Transactions, t)
	}
	for i := range groups {
		groups[i].NetTotal = groups[i].Income.Sub(groups[i].Expenses)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Day > groups[j].Day })
	return groups
}

// BucketBy spreads txs over the windowCount periods ending with the one that
// contains asOf. Periods with no transactions are zero-filled; transactions
// outside the window are ignored.
func BucketBy(txs []Transaction, g Granularity, windowCount int, asOf Date) (Series, error) {
	if _, _, err := Window(g, windowCount, asOf); err != nil {
		return Series{}, err
	}

	current := periodStart(asOf, g)
	buckets := make([]Bucket, windowCount)
	index := make(map[string]int, windowCount)
	for i := 0; i < windowCount; i++ {
		start := shiftPeriod(current, g, i-(windowCount-1))
		key := periodKey(start, g)
		buckets[i] = Bucket{
			Key:      key,
			Start:    start,
			End:      shiftPeriod(start, g, 1).AddDays(-1),
			Income:   decimal.Zero,
			Expenses: decimal.Zero,
		}
		index[key] = i
	}

	for _, t := range txs {
		i, ok := index[periodKey(periodStart(t.CalendarDate(), g), g)]
		if !ok {
			continue
		}
		addAmount(t, &buckets[i].Income, &buckets[i].Expenses)
	}

	s := Series{
		Granularity:   g,
		Labels:        make([]string, windowCount),
		IncomeSeries:  make([]decimal.Decimal, windowCount),
		ExpenseSeries: make([]decimal.Decimal, windowCount),
		Buckets:       buckets,
	}
	for i := range buckets {
		buckets[i].NetTotal = buckets[i].Income.Sub(buckets[i].Expenses)
		s.Labels[i] = buckets[i].Key
		s.IncomeSeries[i] = buckets[i].Income
		s.ExpenseSeries[i] = buckets[i].Expenses
	}
	return s, nil
}

// Window returns the first and last day BucketBy covers for the same arguments.
func Window(g Granularity, windowCount int, asOf Date) (Date, Date, error) {
	if _, err := ParseGranularity(string(g)); err != nil {
		return Date{}, Date{}, err
	}
	if windowCount < 1 {
		return Date{}, Date{}, NewValidationError("window", "must be at least 1")
	}
	current := periodStart(asOf, g)
	first := shiftPeriod(current, g, -(windowCount - 1))
	last := shiftPeriod(current, g, 1).AddDays(-1)
	return first, last, nil
}

// RankByCategory totals txs per (category, type) pair, largest first.
func RankByCategory(txs []Transaction) []CategoryRank {
	type key struct {
		id  string
		typ TransactionType
	}
	index := make(map[key]int)
	seen := make(map[key]map[string]bool)
	ranks := make([]CategoryRank, 0)

	for _, t := range txs {
		k := key{id: t.CategoryID, typ: t.Type}
		i, ok := index[k]
		if !ok {
			i = len(ranks)
			index[k] = i
			seen[k] = make(map[string]bool)
			color, icon := t.Category.Color, t.Category.Icon
			if color == "" {
				color = FallbackColor
			}
			if icon == "" {
				icon = DefaultCategoryIcon
			}
			ranks = append(ranks, CategoryRank{
				CategoryID: t.CategoryID,
				Name:       t.Category.Name,
				Type:       t.Type,
				Color:      color,
				Icon:       icon,
				Total:      decimal.Zero,
				Labels:     make([]LabelRef, 0),
			})
		}
		r := &ranks[i]
		r.Total = r.Total.Add(t.Amount)
		r.Count++
		if t.LabelID != "" && !seen[k][t.LabelID] {
			seen[k][t.LabelID] = true
			ref := LabelRef{ID: t.LabelID, Color: FallbackColor}
			if t.Label != nil {
				ref = *t.Label
			}
			r.Labels = append(r.Labels, ref)
		}
	}

	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Total.GreaterThan(ranks[j].Total) })
	return ranks
}

// RankByLabel totals labelled transactions per label regardless of type,
// largest first. Unlabelled transactions are skipped.
func RankByLabel(txs []Transaction) []LabelRank {
	index := make(map[string]int)
	ranks := make([]LabelRank, 0)
	for _, t := range txs {
		if t.LabelID == "" {
			continue
		}
		i, ok := index[t.LabelID]
		if !ok {
			i = len(ranks)
			index[t.LabelID] = i
			r := LabelRank{LabelID: t.LabelID, Color: FallbackColor, Total: decimal.Zero}
			if t.Label != nil {
				r.Name = t.Label.Name
				if t.Label.Color != "" {
					r.Color = t.Label.Color
				}
			}
			ranks = append(ranks, r)
		}
		ranks[i].Total = ranks[i].Total.Add(t.Amount)
		ranks[i].Count++
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Total.GreaterThan(ranks[j].Total) })
	return ranks
}

// SummarizeMonth computes the dashboard card and daily ledger of one month.
func SummarizeMonth(txs []Transaction, year, month int) MonthSummary {
	start := NewDate(year, month, 1)
	key := start.MonthKey()
	in := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.CalendarDate().MonthKey() == key {
			in = append(in, t)
		}
	}

	s := MonthSummary{Month: key, Income: decimal.Zero, Expenses: decimal.Zero}
	for _, t := range in {
		addAmount(t, &s.Income, &s.Expenses)
	}
	s.NetBalance = s.Income.Sub(s.Expenses)
	s.TransactionCount = len(in)
	s.Days = GroupByDay(in)
	return s
}

// GroupByMonth nests day groups under their month, newest month first.
func GroupByMonth(txs []Transaction) []MonthGroup {
	months := make([]MonthGroup, 0)
	index := make(map[string]int)
	for _, day := range GroupByDay(txs) {
		key := day.Day[:7]
		i, ok := index[key]
		if !ok {
			i = len(months)
			index[key] = i
			months = append(months, MonthGroup{Month: key, Income: decimal.Zero, Expenses: decimal.Zero})
		}
		m := &months[i]
		m.Income = m.Income.Add(day.Income)
		m.Expenses = m.Expenses.Add(day.Expenses)
		m.Days = append(m.Days, day)
	}
	for i := range months {
		months[i].NetTotal = months[i].Income.Sub(months[i].Expenses)
	}
	return months
}

// SummarizeDay returns the group for a single day, empty when nothing matched.
func SummarizeDay(txs []Transaction, day Date) DayGroup {
	key := day.Key()
	in := make([]Transaction, 0)
	for _, t := range txs {
		if t.DayKey() == key {
			in = append(in, t)
		}
	}
	if groups := GroupByDay(in); len(groups) == 1 {
		return groups[0]
	}
	return DayGroup{
		Day:          key,
		Income:       decimal.Zero,
		Expenses:     decimal.Zero,
		NetTotal:     decimal.Zero,
		Transactions: make([]Transaction, 0),
	}
}

func addAmount(t Transaction, income, expenses *decimal.Decimal) {
	switch t.Type {
	case Income:
		*income = income.Add(t.Amount)
	case Expense:
		*expenses = expenses.Add(t.Amount)
	}
}

func periodStart(d Date, g Granularity) Date {
	switch g {
	case Week:
		return d.WeekStart()
	case Month:
		return NewDate(d.Year(), d.Month(), 1)
	default:
		return NewDate(d.Year(), 1, 1)
	}
}

func shiftPeriod(start Date, g Granularity, n int) Date {
	switch g {
	case Week:
		return start.AddDays(7 * n)
	case Month:
		return NewDate(start.Year(), start.Month()+n, 1)
	default:
		return NewDate(start.Year()+n, 1, 1)
	}
}

func periodKey(start Date, g Granularity) string {
	switch g {
	case Week:
		return start.Key()
	case Month:
		return start.MonthKey()
	default:
		return strconv.Itoa(start.Year())
	}
}
