// Package collector implements C10: the eight-phase orchestrator that
// wires reachability, the vendor API client, the processor, the
// failover synthesiser, the terminal registry, storage, and metrics
// into one cycle (spec.md §4.2).
package collector

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luckymifta/dash-atm-collector/internal/clock"
	"github.com/luckymifta/dash-atm-collector/internal/failover"
	"github.com/luckymifta/dash-atm-collector/internal/metrics"
	"github.com/luckymifta/dash-atm-collector/internal/model"
	"github.com/luckymifta/dash-atm-collector/internal/processor"
	"github.com/luckymifta/dash-atm-collector/internal/reachability"
	"github.com/luckymifta/dash-atm-collector/internal/registry"
	"github.com/luckymifta/dash-atm-collector/internal/storage"
	"github.com/luckymifta/dash-atm-collector/internal/vendorclient"
)

// vendorStatusFilters is the fixed eight-value vocabulary P4 iterates
// over (spec.md §4.2/P4).
var vendorStatusFilters = []string{
	"WOUNDED", "HARD", "CASH", "UNAVAILABLE", "AVAILABLE", "WARNING", "ZOMBIE", "OUT_OF_SERVICE",
}

// Result summarises one cycle for the scheduler's cycle history.
type Result struct {
	StartedAt          time.Time
	Outcome            string // "ok" or "failover"
	FailoverReason     failover.Reason
	TerminalCount      int
	PerformanceMetrics map[string]time.Duration
}

// Collector bundles every dependency one cycle needs.
type Collector struct {
	prober   *reachability.Prober
	client   *vendorclient.Client
	registry *registry.Registry
	store    *storage.Store

	totalATMs       int
	includeCashInfo bool
	demoMode        bool
	interTermPause  time.Duration

	logger zerolog.Logger
}

// New builds a Collector.
func New(
	prober *reachability.Prober,
	client *vendorclient.Client,
	reg *registry.Registry,
	store *storage.Store,
	totalATMs int,
	includeCashInfo bool,
	demoMode bool,
	interTermPause time.Duration,
	logger zerolog.Logger,
) *Collector {
	return &Collector{
		prober:          prober,
		client:          client,
		registry:        reg,
		store:           store,
		totalATMs:       totalATMs,
		includeCashInfo: includeCashInfo,
		demoMode:        demoMode,
		interTermPause:  interTermPause,
		logger:          logger.With().Str("component", "collector").Logger(),
	}
}

// RunCycle executes one full P1-P8 pass and returns its summary. It
// never returns an error: every failure mode defined by spec.md §7 is
// absorbed into either the failover branch or a logged, skipped
// stream, because a cycle always "succeeds" in the sense of producing
// a consistent snapshot.
func (c *Collector) RunCycle(ctx context.Context) Result {
	if c.demoMode {
		return c.RunDemo(ctx)
	}

	start := time.Now()
	perf := make(map[string]time.Duration)
	res := Result{StartedAt: clock.Now(), Outcome: "ok"}

	// P1 Reachability
	p1Start := time.Now()
	reachable := c.prober.Reachable(ctx)
	perf["p1_reachability"] = time.Since(p1Start)
	metrics.RecordPhase("p1_reachability", perf["p1_reachability"])

	if !reachable {
		c.runFailover(ctx, failover.ReasonConnectionFailed, &res, perf)
		res.PerformanceMetrics = perf
		metrics.RecordCycle(res.Outcome, time.Since(start))
		return res
	}

	// P2 Authenticate
	p2Start := time.Now()
	authErr := c.client.Login(ctx)
	perf["p2_authenticate"] = time.Since(p2Start)
	metrics.RecordPhase("p2_authenticate", perf["p2_authenticate"])

	if authErr != nil {
		c.logger.Error().Err(authErr).Msg("authentication failed on both credential sets")
		c.runFailover(ctx, failover.ReasonAuthFailed, &res, perf)
		res.PerformanceMetrics = perf
		metrics.RecordCycle(res.Outcome, time.Since(start))
		return res
	}
	defer c.client.Logout(ctx)

	now := clock.Now()

	// P3 Regional fetch
	p3Start := time.Now()
	snapshot, ok := c.runRegionalFetch(ctx, now)
	perf["p3_regional_fetch"] = time.Since(p3Start)
	metrics.RecordPhase("p3_regional_fetch", perf["p3_regional_fetch"])

	// P4 Terminal search
	p4Start := time.Now()
	discovered := c.runTerminalSearch(ctx)
	perf["p4_terminal_search"] = time.Since(p4Start)
	metrics.RecordPhase("p4_terminal_search", perf["p4_terminal_search"])

	// P5 Terminal details
	p5Start := time.Now()
	statusRecords := c.runTerminalDetails(ctx, discovered, now)
	perf["p5_terminal_details"] = time.Since(p5Start)
	metrics.RecordPhase("p5_terminal_details", perf["p5_terminal_details"])

	// P6 Cash information (optional)
	var cashRecords []model.CashRecord
	if c.includeCashInfo {
		p6Start := time.Now()
		cashRecords = c.runCashInfo(ctx, discovered, now)
		perf["p6_cash_info"] = time.Since(p6Start)
		metrics.RecordPhase("p6_cash_info", perf["p6_cash_info"])
	}

	// P7 Persist
	p7Start := time.Now()
	c.persist(ctx, ok, snapshot, statusRecords, cashRecords)
	perf["p7_persist"] = time.Since(p7Start)
	metrics.RecordPhase("p7_persist", perf["p7_persist"])

	res.TerminalCount = len(statusRecords)
	res.PerformanceMetrics = perf
	metrics.RecordCycle(res.Outcome, time.Since(start))

	observed := map[string]int{
		model.StatusAvailable: 0, model.StatusWarning: 0, model.StatusWounded: 0,
		model.StatusZombie: 0, model.StatusOutOfService: 0,
	}
	for _, rec := range statusRecords {
		observed[rec.FetchedStatus]++
	}
	for status, n := range observed {
		metrics.SetTerminalsObserved(status, n)
	}

	// P8 Logout runs via the deferred call above.
	return res
}

func (c *Collector) runRegionalFetch(ctx context.Context, at time.Time) (model.RegionalSnapshot, bool) {
	env, err := c.client.ReportsDashboard(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("P3 regional fetch failed, skipping regional_data for this cycle")
		return model.RegionalSnapshot{}, false
	}

	object, isObject := env.ParsedBody().AsObject()
	if !isObject {
		c.logger.Warn().Msg("P3 dashboard response body was not an object")
		return model.RegionalSnapshot{}, false
	}
	fifthGraphic, ok := object["fifth_graphic"]
	if !ok {
		c.logger.Warn().Msg("P3 dashboard response carried no fifth_graphic key")
		return model.RegionalSnapshot{}, false
	}

	region, rawFragment, found := processor.FifthGraphic(fifthGraphic)
	if !found {
		c.logger.Warn().Msg("P3 fifth_graphic carried no TL-DL region")
		return model.RegionalSnapshot{}, false
	}

	snap := processor.RegionalSnapshot(region, rawFragment, c.totalATMs, at)

	sum := snap.CountAvailable + snap.CountWarning + snap.CountZombie + snap.CountWounded + snap.CountOutOfService
	if sum != c.totalATMs {
		c.logger.Warn().Int("sum", sum).Int("total_atms", c.totalATMs).Msg("rounded regional counts do not sum to configured fleet size")
	}

	return snap, true
}

type discoveredTerminal struct {
	ID             string
	Location       string
	IssueStateCode string
	FetchedStatus  string
}

func (c *Collector) runTerminalSearch(ctx context.Context) []discoveredTerminal {
	seen := make(map[string]bool)
	var out []discoveredTerminal
	newlyDiscovered := 0

	for _, status := range vendorStatusFilters {
		env, err := c.client.TerminalSearchByStatus(ctx, status)
		if err != nil {
			c.logger.Warn().Err(err).Str("status", status).Msg("P4 search failed for status filter")
			continue
		}
		rows, err := processor.TerminalSearchRows(env.Body)
		if err != nil {
			c.logger.Warn().Err(err).Str("status", status).Msg("P4 search body decode failed")
			continue
		}

		for _, row := range rows {
			id := row.TerminalID.String()
			if seen[id] {
				continue // first occurrence wins
			}
			seen[id] = true
			out = append(out, discoveredTerminal{
				ID:             id,
				Location:       row.Location,
				IssueStateCode: row.IssueStateCode,
				FetchedStatus:  model.CollapseStatus(row.IssueStateName),
			})
			if c.registry.Observe(id, row.Location) {
				newlyDiscovered++
			}
		}
	}

	if newlyDiscovered > 0 {
		if err := c.registry.Save(); err != nil {
			c.logger.Error().Err(err).Msg("failed to persist terminal registry after discovering new terminals")
		}
		metrics.RecordRegistryGrowth(newlyDiscovered)
	}

	return out
}

func (c *Collector) runTerminalDetails(ctx context.Context, discovered []discoveredTerminal, at time.Time) []model.TerminalStatusRecord {
	records := make([]model.TerminalStatusRecord, 0, len(discovered))
	for i, t := range discovered {
		if i > 0 {
			sleepCtx(ctx, 200*time.Millisecond)
		}

		env, err := c.client.TerminalDetails(ctx, t.ID, t.IssueStateCode)
		if err != nil {
			c.logger.Warn().Err(err).Str("terminal_id", t.ID).Msg("P5 details fetch failed, skipping terminal")
			continue
		}

		rec, err := processor.TerminalStatusRecord(env.Body, t.FetchedStatus, c.demoMode, uuid.New(), at)
		if err != nil {
			c.logger.Warn().Err(err).Str("terminal_id", t.ID).Msg("P5 details decode failed, skipping terminal")
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (c *Collector) runCashInfo(ctx context.Context, discovered []discoveredTerminal, at time.Time) []model.CashRecord {
	records := make([]model.CashRecord, 0, len(discovered))
	for i, t := range discovered {
		if i > 0 {
			sleepCtx(ctx, c.interTermPause)
		}

		env, err := c.client.CashInfo(ctx, t.ID)
		var body []byte
		if err == nil {
			body = env.Body
		} else {
			c.logger.Warn().Err(err).Str("terminal_id", t.ID).Msg("P6 cash info fetch failed, recording null cash record")
		}
		records = append(records, processor.CashRecord(body, nil, t.ID, at))
	}
	return records
}

func (c *Collector) persist(ctx context.Context, haveSnapshot bool, snapshot model.RegionalSnapshot, statusRecords []model.TerminalStatusRecord, cashRecords []model.CashRecord) {
	if c.store == nil || c.demoMode {
		return
	}
	if haveSnapshot {
		if err := c.store.SaveRegionalSnapshot(ctx, snapshot); err != nil {
			c.logger.Error().Err(err).Msg("P7 regional_data write failed")
		}
	}
	if err := c.store.SaveTerminalStatusRecords(ctx, statusRecords); err != nil {
		c.logger.Error().Err(err).Msg("P7 terminal_details write failed")
	}
	if len(cashRecords) > 0 {
		if err := c.store.SaveCashRecords(ctx, cashRecords); err != nil {
			c.logger.Error().Err(err).Msg("P7 terminal_cash_information write failed")
		}
	}
}

func (c *Collector) runFailover(ctx context.Context, reason failover.Reason, res *Result, perf map[string]time.Duration) {
	metrics.RecordFailover(string(reason))

	now := clock.Now()
	snap := failover.RegionalSnapshot(c.totalATMs, now)
	records := failover.TerminalStatusRecords(c.registry, reason, c.demoMode, now)

	p7Start := time.Now()
	c.persist(ctx, true, snap, records, nil)
	perf["p7_persist"] = time.Since(p7Start)
	metrics.RecordPhase("p7_persist", perf["p7_persist"])

	res.Outcome = "failover"
	res.FailoverReason = reason
	res.TerminalCount = len(records)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
