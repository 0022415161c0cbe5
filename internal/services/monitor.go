package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/coinharbor/deposit-monitor/internal/chain"
	"github.com/coinharbor/deposit-monitor/internal/repository"
	"github.com/coinharbor/deposit-monitor/internal/services/policy"
)

// DefaultPollInterval is used when a currency has no monitoring config row.
const DefaultPollInterval = time.Second * 30

type DepositStore interface {
	GetDeposit(ctx context.Context, id string) (*repository.Deposit, error)
	ListActiveDeposits(ctx context.Context) ([]*repository.Deposit, error)
	GetMonitoringConfig(ctx context.Context, currency repository.Currency) (*repository.MonitoringConfig, error)
	UpdateObservation(ctx context.Context, dep *repository.Deposit) error
}

type Ledger interface {
	CreditDeposit(ctx context.Context, dep *repository.Deposit) error
}

// Monitor owns the registry of watched deposits. Every watched deposit
// gets its own poll timer so one slow checker cannot delay the others;
// the persisted deposit row stays the authoritative state and the
// registry only tracks what is currently scheduled.
type Monitor struct {
	Store               DepositStore
	Ledger              Ledger
	Checkers            map[repository.Currency]chain.Checker
	DefaultPollInterval time.Duration

	mu      sync.Mutex
	running bool
	watches map[string]context.CancelFunc
	cycles  map[string]*sync.Mutex
	sweeper *cron.Cron
}

func NewMonitor(store DepositStore, ledger Ledger, checkers map[repository.Currency]chain.Checker, defaultPollInterval time.Duration) *Monitor {
	if defaultPollInterval <= 0 {
		defaultPollInterval = DefaultPollInterval
	}
	m := &Monitor{
		Store:               store,
		Ledger:              ledger,
		Checkers:            checkers,
		DefaultPollInterval: defaultPollInterval,
		watches:             make(map[string]context.CancelFunc),
		cycles:              make(map[string]*sync.Mutex),
		sweeper:             cron.New(),
	}
	m.sweeper.AddFunc("@every 1m", m.sweep)
	return m
}

// Start loads every non-terminal deposit, begins watching each and
// schedules the periodic registry sweep. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.mu.Unlock()

	newctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()
	deposits, err := m.Store.ListActiveDeposits(newctx)
	if err != nil {
		return fmt.Errorf("Start: %w", err)
	}

	for _, dep := range deposits {
		if dep.Status.Terminal() {
			continue
		}
		if err := m.Watch(ctx, dep.Id); err != nil {
			logrus.Warnf("monitor: start: watch %s: %s", dep.Id, err)
		}
	}

	m.sweeper.Start()
	logrus.Infof("Deposit monitor started with %d deposits", len(deposits))
	return nil
}

// Stop cancels every watch and clears the registry, whether or not
// Start was ever called. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	wasRunning := m.running
	m.running = false
	watches := m.watches
	m.watches = make(map[string]context.CancelFunc)
	m.mu.Unlock()

	m.sweeper.Stop()
	for _, cancel := range watches {
		cancel()
	}
	if wasRunning {
		logrus.Info("Deposit monitor stopped")
	}
}

// Watch begins polling the deposit at its currency's configured
// interval. Watching an id twice keeps the single existing timer. A
// deposit that cannot be loaded is not registered.
func (m *Monitor) Watch(ctx context.Context, depositId string) error {
	newctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	dep, err := m.Store.GetDeposit(newctx, depositId)
	if err != nil {
		logrus.Warnf("monitor: watch %s: %s", depositId, err)
		return fmt.Errorf("Watch: %w", err)
	}
	if dep.Status.Terminal() {
		logrus.Infof("monitor: deposit %s is already %s, not watching", depositId, dep.Status)
		return nil
	}
	if _, ok := m.Checkers[dep.Currency]; !ok {
		logrus.Warnf("monitor: watch %s: unsupported currency %s", depositId, dep.Currency)
		return fmt.Errorf("Watch: unsupported currency %s", dep.Currency)
	}

	pol := m.pollPolicy(newctx, dep.Currency)
	if !pol.Enabled {
		logrus.Warnf("monitor: watch %s: monitoring disabled for %s", depositId, dep.Currency)
		return nil
	}

	m.mu.Lock()
	if _, ok := m.watches[depositId]; ok {
		m.mu.Unlock()
		return nil
	}
	wctx, cancelWatch := context.WithCancel(context.Background())
	m.watches[depositId] = cancelWatch
	m.mu.Unlock()

	go m.poll(wctx, depositId, pol.Interval)
	logrus.Infof("Watching deposit %s [ %s at %s every %s ]", depositId, dep.Currency, dep.DepositAddress, pol.Interval)
	return nil
}

// Unwatch stops scheduling future cycles for the deposit. An in-flight
// cycle runs to completion. No-op when the id is not watched.
func (m *Monitor) Unwatch(depositId string) {
	m.mu.Lock()
	cancel, ok := m.watches[depositId]
	if ok {
		delete(m.watches, depositId)
	}
	m.mu.Unlock()

	if ok {
		cancel()
		logrus.Infof("Stopped watching deposit %s", depositId)
	}
}

// CheckOnce runs a single evaluation cycle, also for deposits that are
// not currently watched. It queues behind an in-flight cycle for the
// same id and does not start ongoing polling.
func (m *Monitor) CheckOnce(ctx context.Context, depositId string) error {
	cyc := m.cycleLock(depositId)
	cyc.Lock()
	defer cyc.Unlock()
	return m.evaluate(ctx, depositId)
}

type MonitorStatus struct {
	Running   bool
	ActiveIds []string
}

func (m *Monitor) Status() MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.watches))
	for id := range m.watches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return MonitorStatus{Running: m.running, ActiveIds: ids}
}

func (m *Monitor) poll(ctx context.Context, depositId string, interval time.Duration) {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			m.runCycle(depositId)
			timer.Reset(interval)
		}
	}
}

// runCycle is the scheduled-tick entry. It skips the tick when the
// previous cycle for the same deposit is still in flight and never lets
// a single deposit's failure escape the scheduler.
func (m *Monitor) runCycle(depositId string) {
	cyc := m.cycleLock(depositId)
	if !cyc.TryLock() {
		logrus.Debugf("monitor: previous check for %s still running, skipping tick", depositId)
		return
	}
	defer cyc.Unlock()

	// detached from the watch context: cancellation stops future
	// scheduling, it does not abort the cycle that already started
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := m.evaluate(ctx, depositId); err != nil {
		logrus.Errorf("monitor: check %s: %s", depositId, err)
	}
}

// evaluate performs one evaluation cycle: load the record, query the
// chain, derive the next status and persist. Reaching completed credits
// the user exactly once through the ledger transaction.
func (m *Monitor) evaluate(ctx context.Context, depositId string) error {
	dep, err := m.Store.GetDeposit(ctx, depositId)
	if errors.Is(err, repository.ErrNotFound) {
		logrus.Warnf("monitor: deposit %s no longer exists", depositId)
		m.Unwatch(depositId)
		return nil
	}
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if dep.Status.Terminal() {
		m.Unwatch(depositId)
		return nil
	}

	checker, ok := m.Checkers[dep.Currency]
	if !ok {
		logrus.Warnf("monitor: deposit %s has unsupported currency %s", depositId, dep.Currency)
		return nil
	}

	res := checker.Check(ctx, dep.DepositAddress)
	if res.Failed() {
		// no progress this cycle, the previous observation stands
		logrus.Warnf("monitor: check %s: %s", depositId, res.Err)
		return nil
	}

	now := time.Now()
	next := nextStatus(dep, res, now)

	changed := next != dep.Status ||
		!res.Balance.Equal(dep.CurrentBalance) ||
		res.Confirmations != dep.Confirmations ||
		(res.TxHash != "" && !dep.TransactionHash.Valid)
	if !changed {
		return nil
	}

	updated := *dep
	updated.Status = next
	updated.CurrentBalance = res.Balance
	updated.Confirmations = res.Confirmations
	updated.LastCheckedAt = sql.NullTime{Time: now, Valid: true}
	if res.TxHash != "" && !updated.TransactionHash.Valid {
		updated.TransactionHash = sql.NullString{String: res.TxHash, Valid: true}
	}

	if next == repository.DepositStatusCompleted {
		updated.CompletedAt = sql.NullTime{Time: now, Valid: true}
		err := m.Ledger.CreditDeposit(ctx, &updated)
		if errors.Is(err, repository.ErrAlreadyCredited) {
			m.Unwatch(depositId)
			return nil
		}
		if err != nil {
			// deposit row untouched, the next tick retries the whole cycle
			return fmt.Errorf("evaluate: credit %s: %w", depositId, err)
		}
		logrus.Infof("Deposit %s completed [ %s %s confirmations %d ]",
			depositId, updated.CurrentBalance, updated.Currency, updated.Confirmations)
		m.Unwatch(depositId)
		return nil
	}

	if err := m.Store.UpdateObservation(ctx, &updated); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if next != dep.Status {
		logrus.Infof("Deposit %s: %s -> %s [ balance %s / %s confirmations %d / %d ]",
			depositId, dep.Status, next,
			updated.CurrentBalance, updated.ExpectedAmount,
			updated.Confirmations, updated.RequiredConfirmations)
	}
	if next == repository.DepositStatusExpired {
		m.Unwatch(depositId)
	}
	return nil
}

// nextStatus derives the candidate status from a fresh observation. The
// transition table keeps status moves forward-only; an expiry deadline
// in the past overrides everything except completion.
func nextStatus(dep *repository.Deposit, res chain.Result, now time.Time) repository.DepositStatus {
	next := dep.Status
	switch {
	case res.Balance.GreaterThanOrEqual(dep.ExpectedAmount) && res.Confirmations >= dep.RequiredConfirmations:
		next = repository.DepositStatusCompleted
	case res.Balance.GreaterThanOrEqual(dep.ExpectedAmount):
		next = repository.DepositStatusConfirming
	case res.Balance.IsPositive():
		next = repository.DepositStatusPartial
	}
	if next != dep.Status && !dep.Status.CanTransitionTo(next) {
		next = dep.Status
	}
	if now.After(dep.ExpiresAt) && next != repository.DepositStatusCompleted {
		next = repository.DepositStatusExpired
	}
	return next
}

// sweep prunes registry entries whose deposit is gone or terminal,
// defensive cleanup against drift between registry and store.
func (m *Monitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	for _, id := range m.Status().ActiveIds {
		dep, err := m.Store.GetDeposit(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			m.Unwatch(id)
			continue
		}
		if err != nil {
			logrus.Errorf("monitor: sweep %s: %s", id, err)
			continue
		}
		if dep.Status.Terminal() {
			m.Unwatch(id)
		}
	}
}

func (m *Monitor) pollPolicy(ctx context.Context, currency repository.Currency) policy.Poll {
	cfg, err := m.Store.GetMonitoringConfig(ctx, currency)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logrus.Warnf("monitor: config for %s: %s", currency, err)
		}
		cfg = nil
	}
	return policy.Resolve(cfg, m.DefaultPollInterval)
}

func (m *Monitor) cycleLock(depositId string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.cycles[depositId]
	if !ok {
		l = new(sync.Mutex)
		m.cycles[depositId] = l
	}
	return l
}
