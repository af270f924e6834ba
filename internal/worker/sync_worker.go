package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/export"
)

// TransactionLister is the read side a sheet sync needs.
type TransactionLister interface {
	ListAll(ctx context.Context, ownerID string, f core.TransactionFilter) ([]core.Transaction, error)
}

// Config holds configuration for the sync worker
type Config struct {
	// Targets maps an owner id to the spreadsheet mirroring its ledger.
	Targets map[string]string

	// SheetName is the tab overwritten on every sync (default: Transactions)
	SheetName string

	// Interval is how often dirty owners are flushed (default: 30s)
	Interval time.Duration
}

// SyncWorker keeps one spreadsheet per configured owner in step with the
// ledger. Events only mark an owner dirty; a periodic flush rewrites the
// whole sheet, so bursts of writes cost one export.
type SyncWorker struct {
	transactions TransactionLister
	sheets       export.ValuesWriter
	config       Config

	mu    sync.Mutex
	dirty map[string]bool

	// Lifecycle management
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncWorker(transactions TransactionLister, sheets export.ValuesWriter, config Config) *SyncWorker {
	if config.SheetName == "" {
		config.SheetName = "Transactions"
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	return &SyncWorker{
		transactions: transactions,
		sheets:       sheets,
		config:       config,
		dirty:        make(map[string]bool),
	}
}

// HandleEvent marks the event's owner for the next flush. Any ledger event
// counts, since category and label names appear in the exported rows.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev == nil || !isLedgerEvent(ev.Event) {
		slog.DebugContext(ctx, "Ignoring unknown event", "event", eventName(ev))
		return nil
	}
	if _, ok := w.config.Targets[ev.OwnerID]; !ok {
		return nil
	}

	w.mu.Lock()
	w.dirty[ev.OwnerID] = true
	w.mu.Unlock()

	slog.DebugContext(ctx, "Owner marked for sheet sync",
		"event", ev.Event,
		"owner_id", ev.OwnerID,
		"entity_id", ev.EntityID)
	return nil
}

// Pending returns the owners waiting for a flush, sorted.
func (w *SyncWorker) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	owners := make([]string, 0, len(w.dirty))
	for owner := range w.dirty {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

// Flush exports every dirty owner. Owners that fail stay dirty and are
// retried on the next flush.
func (w *SyncWorker) Flush(ctx context.Context) error {
	owners := w.Pending()
	var errs []error

	for _, owner := range owners {
		w.mu.Lock()
		delete(w.dirty, owner)
		w.mu.Unlock()

		if err := w.syncOwner(ctx, owner); err != nil {
			w.mu.Lock()
			w.dirty[owner] = true
			w.mu.Unlock()

			slog.ErrorContext(ctx, "Sheet sync failed",
				"owner_id", owner,
				"spreadsheet_id", w.config.Targets[owner],
				"error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *SyncWorker) syncOwner(ctx context.Context, owner string) error {
	txs, err := w.transactions.ListAll(ctx, owner, core.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("list transactions for %s: %w", owner, err)
	}
	_, err = export.ExportToSheet(ctx, w.sheets, w.config.Targets[owner], w.config.SheetName, txs)
	return err
}

// Start marks every target dirty and begins the flush loop. Returns an
// error if already running.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	for owner := range w.config.Targets {
		w.dirty[owner] = true
	}
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Sheet sync worker started",
		"targets", len(w.config.Targets),
		"interval", w.config.Interval)
	return nil
}

// Stop ends the flush loop after one final flush and waits for it.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sheet sync worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sheet sync worker stop timed out")
		return ctx.Err()
	}
}

func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	_ = w.Flush(ctx)

	for {
		select {
		case <-w.stopCh:
			w.finalFlush(ctx)
			return
		case <-ctx.Done():
			w.finalFlush(ctx)
			return
		case <-ticker.C:
			_ = w.Flush(ctx)
		}
	}
}

// finalFlush drains dirty owners on shutdown. ctx may already be cancelled,
// so the flush gets its own deadline.
func (w *SyncWorker) finalFlush(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	_ = w.Flush(flushCtx)
}

func isLedgerEvent(name string) bool {
	for _, prefix := range []string{"transaction.", "category.", "label."} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func eventName(ev *amqp.LedgerEvent) string {
	if ev == nil {
		return ""
	}
	return ev.Event
}
