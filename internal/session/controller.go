package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/quantframe/sessions/internal/broker"
	sessionerrors "github.com/quantframe/sessions/internal/errors"
	"github.com/quantframe/sessions/internal/executor"
	"github.com/quantframe/sessions/internal/ledger"
	"github.com/quantframe/sessions/internal/logger"
	"github.com/quantframe/sessions/internal/monitoring"
	"github.com/quantframe/sessions/internal/notifications"
	"github.com/quantframe/sessions/internal/risk"
	"github.com/quantframe/sessions/internal/signal"
	"github.com/quantframe/sessions/internal/state"
	"github.com/quantframe/sessions/pkg/types"
)

// Status is the lifecycle state of a session. Transitions:
// created -> active <-> paused -> stopped.
type Status string

const (
	StatusCreated Status = "created"
	StatusActive  Status = "active"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
)

var (
	ErrInvalidTransition = stderrors.New("invalid session state transition")
	ErrSessionTerminated = stderrors.New("session is terminated")
	ErrNotActive         = stderrors.New("session is not active")
)

// Config holds everything fixed at session start.
type Config struct {
	SessionID      string            `json:"session_id"`
	StartDate      string            `json:"start_date"`
	InitialCapital float64           `json:"initial_capital"`
	Symbols        []string          `json:"symbols"`
	Sectors        map[string]string `json:"sectors,omitempty"`
	Thresholds     risk.Thresholds   `json:"thresholds"`
	Executor       executor.Config   `json:"executor"`
}

// Validate checks the config before a session can start.
func (c *Config) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %.2f", c.InitialCapital)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid risk thresholds: %w", err)
	}
	return nil
}

// Deps are the collaborators a controller needs. Store, Notifier and
// Health are optional.
type Deps struct {
	Broker   broker.Adapter
	Feed     broker.PriceFeed
	Source   signal.Source
	Store    *state.Store
	Logger   *logger.Logger
	Notifier notifications.Notifier
	Health   *monitoring.HealthChecker
}

// TickReport summarizes one completed tick.
type TickReport struct {
	Date       string            `json:"date"`
	Results    []executor.Result `json:"results"`
	Alert      *risk.Alert       `json:"alert,omitempty"`
	Executed   int               `json:"executed"`
	Rejected   int               `json:"rejected"`
	Cash       float64           `json:"cash"`
	TotalValue float64           `json:"total_value"`
	Paused     bool              `json:"paused"`
}

// Controller owns one session end to end: lifecycle, tick loop, risk
// supervision and persistence.
type Controller struct {
	mu     sync.Mutex
	cfg    Config
	status Status

	led    *ledger.Ledger
	gate   *risk.Gate
	exec   *executor.Executor
	brk    broker.Adapter
	feed   broker.PriceFeed
	src    signal.Source
	store  *state.Store
	log    *logger.Logger
	notif  notifications.Notifier
	health *monitoring.HealthChecker

	errStats *sessionerrors.Stats
	stopFlag atomic.Bool
	lastDate string
}

// New builds a controller in the created state. The ledger is not
// opened until Start.
func New(cfg Config, deps Deps) (*Controller, error) {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return nil, sessionerrors.Wrap(err, sessionerrors.CategoryValidation, "session", "new")
	}
	if deps.Broker == nil {
		return nil, sessionerrors.New(sessionerrors.CategoryValidation, "session", "new", "broker adapter is required")
	}
	if deps.Source == nil {
		return nil, sessionerrors.New(sessionerrors.CategoryValidation, "session", "new", "signal source is required")
	}
	if deps.Feed == nil {
		feed, ok := deps.Broker.(broker.PriceFeed)
		if !ok {
			return nil, sessionerrors.New(sessionerrors.CategoryValidation, "session", "new", "price feed is required")
		}
		deps.Feed = feed
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewDiscard()
	}

	gate := risk.NewGate()
	return &Controller{
		cfg:      cfg,
		status:   StatusCreated,
		gate:     gate,
		exec:     executor.New(deps.Broker, gate, log, cfg.Executor),
		brk:      deps.Broker,
		feed:     deps.Feed,
		src:      deps.Source,
		store:    deps.Store,
		log:      log,
		notif:    deps.Notifier,
		health:   deps.Health,
		errStats: sessionerrors.NewStats(),
	}, nil
}

// SessionID returns the session's identifier.
func (c *Controller) SessionID() string { return c.cfg.SessionID }

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Snapshot returns the current portfolio. Nil ledger (before Start)
// yields a zero portfolio.
func (c *Controller) Snapshot() ledger.Portfolio {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.led == nil {
		return ledger.Portfolio{}
	}
	return c.led.Snapshot()
}

// TradeHistory returns every executed trade so far.
func (c *Controller) TradeHistory() []types.Trade {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.led == nil {
		return nil
	}
	return c.led.TradeHistory()
}

// ValueHistory returns the recorded portfolio values.
func (c *Controller) ValueHistory() []types.ValuePoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.led == nil {
		return nil
	}
	return c.led.ValueHistory()
}

// Start opens the ledger and connects the broker, moving the session
// from created to active.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusStopped {
		return ErrSessionTerminated
	}
	if c.status != StatusCreated {
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, c.status)
	}

	led, err := ledger.Open(c.cfg.InitialCapital)
	if err != nil {
		return sessionerrors.Wrap(err, sessionerrors.CategoryValidation, "session", "start")
	}
	led.SetWarnFunc(c.log.Warning)

	if err := c.brk.Connect(ctx); err != nil {
		return sessionerrors.Wrap(err, sessionerrors.CategoryBrokerTransient, "session", "start").
			WithContext("broker", c.brk.Name())
	}
	if c.health != nil {
		c.health.SetConnected(true)
	}

	c.led = led
	c.status = StatusActive
	c.log.Status("Session %s started: capital=%.2f symbols=%v broker=%s",
		c.cfg.SessionID, c.cfg.InitialCapital, c.cfg.Symbols, c.brk.Name())
	c.persistLocked()
	return nil
}

// Restore rebuilds a session from its persisted state and connects the
// broker. The session resumes in whatever state it was saved in.
func (c *Controller) Restore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusCreated {
		return fmt.Errorf("%w: cannot restore from %s", ErrInvalidTransition, c.status)
	}
	if c.store == nil {
		return sessionerrors.New(sessionerrors.CategoryState, "session", "restore", "no state store configured")
	}

	saved, err := c.store.Load(c.cfg.SessionID)
	if err != nil {
		return sessionerrors.Wrap(err, sessionerrors.CategoryState, "session", "restore")
	}

	led, err := ledger.Open(saved.InitialCapital)
	if err != nil {
		return sessionerrors.Wrap(err, sessionerrors.CategoryState, "session", "restore")
	}
	led.Restore(saved.Portfolio.ToSnapshot(), saved.TradeHistory, saved.ValueHistory)
	led.SetWarnFunc(c.log.Warning)

	if err := c.brk.Connect(ctx); err != nil {
		return sessionerrors.Wrap(err, sessionerrors.CategoryBrokerTransient, "session", "restore").
			WithContext("broker", c.brk.Name())
	}
	if c.health != nil {
		c.health.SetConnected(true)
	}

	c.led = led
	c.cfg.InitialCapital = saved.InitialCapital
	c.cfg.StartDate = saved.StartDate
	switch Status(saved.Status) {
	case StatusPaused:
		c.status = StatusPaused
	default:
		c.status = StatusActive
	}
	c.log.Status("Session %s restored: status=%s value=%.2f trades=%d",
		c.cfg.SessionID, c.status, led.TotalValue(), len(saved.TradeHistory))
	return nil
}

// Pause suspends signal processing. Holdings and history are kept.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusStopped {
		return ErrSessionTerminated
	}
	if c.status != StatusActive {
		return fmt.Errorf("%w: cannot pause from %s", ErrInvalidTransition, c.status)
	}
	c.status = StatusPaused
	c.log.Status("Session %s paused", c.cfg.SessionID)
	c.persistLocked()
	return nil
}

// Resume reactivates a paused session.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusStopped {
		return ErrSessionTerminated
	}
	if c.status != StatusPaused {
		return fmt.Errorf("%w: cannot resume from %s", ErrInvalidTransition, c.status)
	}
	// Resuming supersedes any stop request made while paused.
	c.stopFlag.Store(false)
	c.status = StatusActive
	c.log.Status("Session %s resumed", c.cfg.SessionID)
	c.persistLocked()
	return nil
}

// RequestStop asks a running tick to stop between signal executions.
// The in-flight signal always completes. The request holds until the
// session stops or is resumed.
func (c *Controller) RequestStop() {
	c.stopFlag.Store(true)
}

// Tick runs one orchestration cycle for the given date: mark to market,
// generate signals, execute them in score order, run the periodic risk
// check and persist.
func (c *Controller) Tick(ctx context.Context, date string) (*TickReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusStopped {
		return nil, ErrSessionTerminated
	}
	if c.status == StatusPaused {
		// A paused session skips the tick: no trades, no state change.
		c.log.Info("Tick %s skipped: session %s is paused", date, c.cfg.SessionID)
		snapshot := c.led.Snapshot()
		return &TickReport{
			Date:       date,
			Paused:     true,
			Cash:       snapshot.Cash,
			TotalValue: snapshot.TotalValue(),
		}, nil
	}
	if c.status != StatusActive {
		return nil, fmt.Errorf("%w: status is %s", ErrNotActive, c.status)
	}

	prices, err := c.fetchPrices(ctx)
	if err != nil {
		serr := sessionerrors.Wrap(err, sessionerrors.CategoryBrokerTransient, "session", "tick").
			WithContext("date", date)
		c.recordError(serr)
		return nil, serr
	}
	c.led.MarkToMarket(prices, time.Now())

	snapshot := c.led.Snapshot()
	signals, err := c.src.Generate(ctx, date, snapshot)
	if err != nil {
		// A failing signal source pauses the session rather than
		// trading on stale intent.
		serr := sessionerrors.Wrap(err, sessionerrors.CategorySignal, "session", "tick").
			WithContext("date", date)
		c.recordError(serr)
		c.status = StatusPaused
		c.log.Error("Signal source failed on %s, session paused: %v", date, err)
		c.notify("error", fmt.Sprintf("[%s] signal source failed on %s: %v\nSession paused.",
			c.cfg.SessionID, date, err))
		c.persistLocked()
		return nil, serr
	}

	// Highest conviction first. Stable so equal scores keep source order.
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Score > signals[j].Score
	})

	report := &TickReport{Date: date}
	for _, sig := range signals {
		if c.stopFlag.Load() {
			c.log.Status("Stop requested, abandoning %d remaining signals", len(signals)-len(report.Results))
			break
		}
		res := c.exec.Execute(ctx, c.led, sig, prices, c.cfg.Sectors, c.cfg.Thresholds)
		report.Results = append(report.Results, res)
		c.recordResult(res)
		if res.Executed() {
			report.Executed++
		} else if res.Status == executor.StatusRejected && res.Reason != executor.ReasonHold {
			report.Rejected++
		}
	}

	snapshot = c.led.Snapshot()
	report.Cash = snapshot.Cash
	report.TotalValue = snapshot.TotalValue()

	if alert := c.gate.PeriodicCheck(snapshot, c.led.ValueHistory(), c.cfg.Thresholds); alert != nil {
		report.Alert = alert
		monitoring.RecordRiskAlert(string(alert.Severity), alert.AlertType)
		level, msg := notifications.FormatRiskAlert(c.cfg.SessionID, alert)
		c.log.Warning("Risk alert (%s/%s): %s", alert.Severity, alert.AlertType, alert.Message)
		c.notify(level, msg)
		if alert.IsCritical() {
			c.status = StatusPaused
			report.Paused = true
			c.log.Status("Session %s auto-paused: %s", c.cfg.SessionID, alert.Message)
		}
	}

	c.lastDate = date
	c.persistLocked()

	monitoring.UpdatePortfolio(c.cfg.SessionID, report.TotalValue, report.Cash)
	c.log.LogTickStatus(date, report.Cash, report.TotalValue,
		len(snapshot.Positions), report.Executed, report.Rejected)
	if c.health != nil {
		c.health.RecordTick(string(c.status), report.TotalValue)
	}
	return report, nil
}

// fetchPrices pulls quotes for the configured symbols plus anything
// currently held.
func (c *Controller) fetchPrices(ctx context.Context) (map[string]float64, error) {
	want := make(map[string]struct{}, len(c.cfg.Symbols))
	for _, sym := range c.cfg.Symbols {
		want[sym] = struct{}{}
	}
	for sym := range c.led.Snapshot().Positions {
		want[sym] = struct{}{}
	}
	symbols := make([]string, 0, len(want))
	for sym := range want {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return c.feed.GetPrices(ctx, symbols)
}

func (c *Controller) recordResult(res executor.Result) {
	if res.Executed() {
		monitoring.RecordTrade(res.Symbol, string(res.Side), res.Quantity*res.Price)
		return
	}
	if res.Reason != "" && res.Reason != executor.ReasonHold {
		monitoring.RecordRejection(res.Reason)
	}
	switch res.Reason {
	case executor.ReasonBrokerUnavailable:
		c.errStats.Record(sessionerrors.CategoryBrokerTransient)
	case executor.ReasonBrokerRejected:
		c.errStats.Record(sessionerrors.CategoryBrokerPermanent)
	case executor.ReasonUnreconciled:
		c.errStats.Record(sessionerrors.CategoryBrokerTransient)
		c.notify("error", fmt.Sprintf("[%s] order %s for %s unconfirmed at the broker, manual reconciliation required",
			c.cfg.SessionID, res.OrderID, res.Symbol))
	case executor.ReasonReconciliation:
		c.errStats.Record(sessionerrors.CategoryLedger)
	case executor.ReasonRiskViolation:
		c.errStats.Record(sessionerrors.CategoryRisk)
	}
}

func (c *Controller) recordError(err *sessionerrors.SessionError) {
	c.errStats.Record(err.Category)
	monitoring.RecordError(string(err.Category))
	c.log.LogError(err.Operation, err)
	if c.health != nil {
		c.health.RecordError(err)
	}
}

// ErrorStats exposes the running error tally.
func (c *Controller) ErrorStats() *sessionerrors.Stats { return c.errStats }

func (c *Controller) notify(level, message string) {
	if c.notif == nil {
		return
	}
	if err := c.notif.SendAlert(level, message); err != nil {
		c.log.Warning("Notification delivery failed: %v", err)
	}
}

// persistLocked saves state if a store is configured. Persistence
// failures are logged and counted, never fatal.
func (c *Controller) persistLocked() {
	if c.store == nil || c.led == nil {
		return
	}
	cfgJSON, _ := json.Marshal(c.cfg)
	st := &state.SessionState{
		SessionID:      c.cfg.SessionID,
		Status:         string(c.status),
		StartDate:      c.cfg.StartDate,
		InitialCapital: c.cfg.InitialCapital,
		Portfolio:      state.FromSnapshot(c.led.Snapshot()),
		TradeHistory:   c.led.TradeHistory(),
		ValueHistory:   c.led.ValueHistory(),
		Config:         cfgJSON,
	}
	if err := c.store.Save(st); err != nil {
		c.errStats.Record(sessionerrors.CategoryPersistence)
		monitoring.RecordError(string(sessionerrors.CategoryPersistence))
		c.log.Error("State persistence failed for %s: %v", c.cfg.SessionID, err)
	}
}
