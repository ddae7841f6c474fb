// Package processor implements C7: the pure functions that turn raw
// vendor payloads into the canonical model.* records persisted by
// storage. Nothing in this package performs I/O; every function takes
// bytes already fetched by vendorclient and a clock reading already
// taken by the caller, so it can be exercised with table-driven tests
// alone (spec.md §9 design note).
package processor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luckymifta/dash-atm-collector/internal/clock"
	"github.com/luckymifta/dash-atm-collector/internal/model"
)

// FifthGraphicRegion is one element of the dashboard report's
// fifth_graphic array: a region code plus its per-status percentage
// breakdown, each value a decimal string such as "0.785".
type FifthGraphicRegion struct {
	RegionCode string            `json:"hc-key"`
	StateCount map[string]string `json:"state_count"`
}

// FifthGraphic decodes the dashboard response's fifth_graphic array
// and returns only the region whose hc-key is TL-DL (spec.md §4.2/P3:
// "only the Timor-Leste Dili region is in scope"). ok is false if no
// such region is present.
func FifthGraphic(rawBody json.RawMessage) (region FifthGraphicRegion, rawFragment json.RawMessage, ok bool) {
	var regions []json.RawMessage
	if err := json.Unmarshal(rawBody, &regions); err != nil {
		return FifthGraphicRegion{}, nil, false
	}
	for _, raw := range regions {
		var r FifthGraphicRegion
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		if r.RegionCode == model.RegionCodeTimorLesteDili {
			return r, raw, true
		}
	}
	return FifthGraphicRegion{}, nil, false
}

// RegionalSnapshot builds a model.RegionalSnapshot from one region's
// fifth_graphic fragment (spec.md §4.2/P3) and the configured total
// terminal count. rawFragment is preserved verbatim into
// RawRegionalData. If the rounded per-status counts do not sum to
// totalATMs, the caller is expected to log the discrepancy; the
// percentages remain the source of truth and the record is still
// built.
func RegionalSnapshot(region FifthGraphicRegion, rawFragment json.RawMessage, totalATMs int, at time.Time) model.RegionalSnapshot {
	snap := model.RegionalSnapshot{
		UniqueRequestID:   uuid.New(),
		RegionCode:        model.RegionCodeTimorLesteDili,
		DateCreation:      clock.ToDili(at),
		TotalATMsInRegion: totalATMs,
		RawRegionalData:   rawFragment,
	}

	for state, pctStr := range region.StateCount {
		pct := parseDecimal(pctStr)
		count := percentageToCount(pct, totalATMs)

		switch state {
		case "AVAILABLE":
			snap.CountAvailable, snap.PercentAvailable = count, pct
		case "WARNING":
			snap.CountWarning, snap.PercentWarning = count, pct
		case "ZOMBIE":
			snap.CountZombie, snap.PercentZombie = count, pct
		case "WOUNDED", "HARD", "CASH":
			snap.CountWounded += count
			snap.PercentWounded = snap.PercentWounded.Add(pct)
		case "OUT_OF_SERVICE", "UNAVAILABLE":
			snap.CountOutOfService += count
			snap.PercentOutOfService = snap.PercentOutOfService.Add(pct)
		}
	}

	return snap
}

// percentageToCount rounds a [0,1] fraction-of-total to the nearest
// whole terminal count (spec.md §3.1: "counts are derived from
// percentages by rounding, not vice versa").
func percentageToCount(pct decimal.Decimal, total int) int {
	raw := pct.Mul(decimal.NewFromInt(int64(total)))
	rounded := raw.Round(0)
	n, _ := rounded.Float64()
	return int(n)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// terminalSearchRow is one element of the terminal search body.
type terminalSearchRow struct {
	TerminalID     json.Number `json:"terminalId"`
	Location       string      `json:"location"`
	SerialNumber   string      `json:"serialNumber"`
	IssueStateName string      `json:"issueStateName"`
	IssueStateCode string      `json:"issueStateCode"`
}

// TerminalSearchRows decodes the body of a terminal-search-by-status
// call into the list of (terminalID, location, issueStateCode) tuples
// the orchestrator needs to drive P5 (spec.md §4.2/P4).
func TerminalSearchRows(rawBody json.RawMessage) ([]terminalSearchRow, error) {
	var rows []terminalSearchRow
	if err := json.Unmarshal(rawBody, &rows); err != nil {
		return nil, fmt.Errorf("decode terminal search body: %w", err)
	}
	return rows, nil
}

// terminalDetailRow is the shape of one element in a terminal-details
// body; faultList is present only when the terminal is unhealthy.
type terminalDetailRow struct {
	TerminalID     json.Number `json:"terminalId"`
	Location       string      `json:"location"`
	SerialNumber   string      `json:"serialNumber"`
	IssueStateName string      `json:"issueStateName"`
	FaultList      []struct {
		Year                  string `json:"year"`
		Month                 string `json:"month"`
		Day                   string `json:"day"`
		ExternalFaultID       string `json:"externalFaultId"`
		AgentErrorDescription string `json:"agentErrorDescription"`
		CreationDate          string `json:"creationDate"`
	} `json:"faultList"`
}

// TerminalStatusRecord builds one model.TerminalStatusRecord from the
// raw detail body returned by P5 (spec.md §4.2/P5). rawBody is the
// untouched per-terminal fragment, preserved into RawTerminalData.
// demoMode and requestID are threaded through into Metadata.
func TerminalStatusRecord(rawBody json.RawMessage, fallbackStatus string, demoMode bool, requestID uuid.UUID, at time.Time) (model.TerminalStatusRecord, error) {
	var rows []terminalDetailRow
	if err := json.Unmarshal(rawBody, &rows); err != nil {
		return model.TerminalStatusRecord{}, fmt.Errorf("decode terminal detail body: %w", err)
	}
	if len(rows) == 0 {
		return model.TerminalStatusRecord{}, fmt.Errorf("terminal detail body carried no rows")
	}
	row := rows[0]

	canonical := model.CollapseStatus(row.IssueStateName)
	if row.IssueStateName == "" {
		canonical = model.CollapseStatus(fallbackStatus)
	}

	rec := model.TerminalStatusRecord{
		UniqueRequestID: requestID,
		TerminalID:      row.TerminalID.String(),
		Location:        row.Location,
		SerialNumber:    row.SerialNumber,
		IssueStateName:  row.IssueStateName,
		FetchedStatus:   canonical,
		RetrievedDate:   clock.ToDili(at),
		RawTerminalData: rawBody,
	}

	hasFault := len(row.FaultList) > 0
	if hasFault {
		f := row.FaultList[0]
		rec.FaultData = model.FaultData{
			Year:                  strPtr(f.Year),
			Month:                 strPtr(f.Month),
			Day:                   strPtr(f.Day),
			ExternalFaultID:       strPtr(f.ExternalFaultID),
			AgentErrorDescription: strPtr(f.AgentErrorDescription),
			CreationDate:          faultCreationDate(f.CreationDate),
		}
	}

	rec.Metadata = model.Metadata{
		RetrievalTimestamp: clock.FormatISO8601(at),
		DemoMode:           demoMode,
		UniqueRequestID:    requestID.String(),
		ProcessingInfo: model.ProcessingInfo{
			HasFaultData:      hasFault,
			HasLocation:       row.Location != "",
			StatusAtRetrieval: canonical,
		},
	}

	return rec, nil
}

// faultCreationDate converts the vendor's millisecond-epoch string
// creationDate field into the vendor's own fault-block format,
// DD:MM:YYYY HH:MM:SS (spec.md §3.3). An unparsable value is carried
// through unchanged rather than dropped, so the original is always
// recoverable from the JSONB column.
func faultCreationDate(raw string) *string {
	if raw == "" {
		return nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return strPtr(raw)
	}
	formatted := clock.FormatFaultTimestamp(clock.FromUnixMillisUTC(ms))
	return &formatted
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
