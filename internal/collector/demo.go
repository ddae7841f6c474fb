package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/luckymifta/dash-atm-collector/internal/clock"
	"github.com/luckymifta/dash-atm-collector/internal/model"
	"github.com/luckymifta/dash-atm-collector/internal/processor"
)

// demoFifthGraphic mirrors the synthetic regional payload the
// original source generates in demo mode (spec.md supplemented
// feature: "Demo mode").
const demoFifthGraphic = `[{"hc-key":"TL-DL","state_count":{"AVAILABLE":"0.78571427","WOUNDED":"0.14285714","WARNING":"0.07142857"}}]`

// demoCashBody mirrors the original source's synthetic two-cassette
// cash payload, one OK and one LOW, so demo runs still exercise the
// has_low_cash_warning path.
const demoCashBody = `{"cashInfo":[
	{"cassId":"PCU00","cassLogicNbr":1,"cassPhysNbr":0,"cassTypeValue":"REJECT","cassTypeDescription":"Cassette of Rejected Notes","cassStatusValue":"OK","cassStatusDescription":"Cassete OK","cassStatusColor":"#3cd179","nbrNotes":14,"cassTotal":0,"percentage":0.0,"instanceId":"PCU00-1"},
	{"cassId":"PCU01","cassLogicNbr":2,"cassPhysNbr":1,"cassTypeValue":"DISPENSE","cassTypeDescription":"Dispensing Cassette","cassStatusValue":"LOW","cassStatusDescription":"Cassette almost empty","cassStatusColor":"#90EE90","currency":"USD","notesVal":20,"nbrNotes":542,"cassTotal":10840,"percentage":0.0,"instanceId":"PCU01-2"}
]}`

// demoTerminalDetail renders a synthetic terminal-details body for one
// terminal ID, alternating between a clean AVAILABLE row and a WOUNDED
// row with fault data, so a demo cycle exercises both code paths.
func demoTerminalDetail(terminalID string, wounded bool) []byte {
	if wounded {
		return []byte(fmt.Sprintf(`[{"terminalId":"%s","location":"Dili Demo Branch","serialNumber":"DEMO-SN-%s","issueStateName":"WOUNDED","faultList":[{"year":"2026","month":"08","day":"01","externalFaultId":"DEMO-FAULT","agentErrorDescription":"Demo simulated fault","creationDate":"1753977600000"}]}]`, terminalID, terminalID))
	}
	return []byte(fmt.Sprintf(`[{"terminalId":"%s","location":"Dili Demo Branch","serialNumber":"DEMO-SN-%s","issueStateName":"AVAILABLE"}]`, terminalID, terminalID))
}

// RunDemo synthesises one full cycle's worth of data with no network
// or database I/O (spec.md supplemented feature: "Demo mode" —
// `--demo` short-circuits the whole pipeline before P1). It still
// exercises the real processor decode paths, just against synthetic
// bytes instead of vendor responses, so the demo path cannot silently
// drift from the real one.
func (c *Collector) RunDemo(ctx context.Context) Result {
	start := time.Now()
	now := clock.Now()
	perf := map[string]time.Duration{}

	region, rawFragment, _ := processor.FifthGraphic(json.RawMessage(demoFifthGraphic))
	snapshot := processor.RegionalSnapshot(region, rawFragment, c.totalATMs, now)

	entries := c.registry.Known()
	statusRecords := make([]model.TerminalStatusRecord, 0, len(entries))
	var cashRecords []model.CashRecord

	for i, e := range entries {
		wounded := i%5 == 0
		rec, err := processor.TerminalStatusRecord(demoTerminalDetail(e.TerminalID, wounded), "AVAILABLE", true, uuid.New(), now)
		if err != nil {
			c.logger.Warn().Err(err).Str("terminal_id", e.TerminalID).Msg("demo terminal synthesis failed")
			continue
		}
		rec.Location = e.Location
		statusRecords = append(statusRecords, rec)

		if c.includeCashInfo {
			cashRecords = append(cashRecords, processor.CashRecord([]byte(demoCashBody), nil, e.TerminalID, now))
		}
	}

	c.persist(ctx, true, snapshot, statusRecords, cashRecords)

	perf["demo_cycle"] = time.Since(start)
	return Result{
		StartedAt:          now,
		Outcome:            "ok",
		TerminalCount:      len(statusRecords),
		PerformanceMetrics: perf,
	}
}
