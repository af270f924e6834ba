package services

import (
	"context"

	"ledger/internal/core"
)

// TransactionLister is the read side the statistics need.
type TransactionLister interface {
	ListAll(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.Transaction, error)
}

// StatsService fetches the relevant window once and hands it to the pure
// aggregations in core.
type StatsService struct {
	transactions TransactionLister
}

func NewStatsService(transactions TransactionLister) *StatsService {
	return &StatsService{transactions: transactions}
}

func (s *StatsService) Daily(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.DayGroup, error) {
	txs, err := s.transactions.ListAll(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	return core.GroupByDay(txs), nil
}

// Series loads only the transactions inside the bucket window. f may narrow
// the set further by type, category or label; its dates are replaced.
func (s *StatsService) Series(ctx context.Context, ownerID string, f core.TransactionFilter, g core.Granularity, window int, asOf core.Date) (core.Series, error) {
	first, last, err := core.Window(g, window, asOf)
	if err != nil {
		return core.Series{}, err
	}
	f.StartDate, f.EndDate = &first, &last
	txs, err := s.transactions.ListAll(ctx, ownerID, f)
	if err != nil {
		return core.Series{}, err
	}
	return core.BucketBy(txs, g, window, asOf)
}

func (s *StatsService) Categories(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.CategoryRank, error) {
	txs, err := s.transactions.ListAll(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	return core.RankByCategory(txs), nil
}

func (s *StatsService) Labels(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.LabelRank, error) {
	txs, err := s.transactions.ListAll(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	return core.RankByLabel(txs), nil
}

func (s *StatsService) Month(ctx context.Context, ownerID string, year, month int) (core.MonthSummary, error) {
	first := core.NewDate(year, month, 1)
	last := core.NewDate(year, month+1, 0)
	txs, err := s.transactions.ListAll(ctx, ownerID, core.TransactionFilter{StartDate: &first, EndDate: &last})
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.SummarizeMonth(txs, year, month), nil
}

func (s *StatsService) Months(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.MonthGroup, error) {
	txs, err := s.transactions.ListAll(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	return core.GroupByMonth(txs), nil
}

func (s *StatsService) Day(ctx context.Context, ownerID string, day core.Date) (core.DayGroup, error) {
	txs, err := s.transactions.ListAll(ctx, ownerID, core.TransactionFilter{StartDate: &day, EndDate: &day})
	if err != nil {
		return core.DayGroup{}, err
	}
	return core.SummarizeDay(txs, day), nil
}
