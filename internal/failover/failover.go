// Package failover implements C8: when P1 or P2 cannot reach a
// trustworthy picture of the fleet, it synthesises the OUT_OF_SERVICE
// branch spec.md §4.2 calls for, so downstream consumers always see a
// cycle's worth of rows rather than a gap.
package failover

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luckymifta/dash-atm-collector/internal/clock"
	"github.com/luckymifta/dash-atm-collector/internal/model"
	"github.com/luckymifta/dash-atm-collector/internal/registry"
)

// Reason distinguishes why the synthesiser fired; it becomes the
// serial-number branch marker on every synthesised terminal row.
type Reason string

const (
	ReasonConnectionFailed Reason = "CONNECTION_FAILED"
	ReasonAuthFailed       Reason = "AUTH_FAILED"
)

// RegionalSnapshot builds the all-OUT_OF_SERVICE regional aggregate
// for a cycle that never reached P3 (spec.md §4.2: "the region is
// reported at zero availability rather than omitted").
func RegionalSnapshot(totalATMs int, at time.Time) model.RegionalSnapshot {
	return model.RegionalSnapshot{
		UniqueRequestID:     uuid.New(),
		RegionCode:          model.RegionCodeTimorLesteDili,
		CountOutOfService:   totalATMs,
		PercentOutOfService: decimal.NewFromInt(1),
		DateCreation:        clock.ToDili(at),
		TotalATMsInRegion:   totalATMs,
		RawRegionalData:     nil,
	}
}

// TerminalStatusRecords builds one synthesised OUT_OF_SERVICE record
// per terminal the registry currently knows about, so a failed cycle
// still produces a full fleet row count (spec.md §4.2/P1-P2 failover
// note, TESTABLE PROPERTY 6).
func TerminalStatusRecords(reg *registry.Registry, reason Reason, demoMode bool, at time.Time) []model.TerminalStatusRecord {
	entries := reg.Known()
	records := make([]model.TerminalStatusRecord, 0, len(entries))
	timestamp := clock.FormatISO8601(at)

	for _, e := range entries {
		requestID := uuid.New()
		records = append(records, model.TerminalStatusRecord{
			UniqueRequestID: requestID,
			TerminalID:      e.TerminalID,
			Location:        e.Location,
			SerialNumber:    string(reason),
			IssueStateName:  model.StatusOutOfService,
			FetchedStatus:   model.StatusOutOfService,
			RetrievedDate:   clock.ToDili(at),
			RawTerminalData: nil,
			FaultData:       model.FaultData{},
			Metadata: model.Metadata{
				RetrievalTimestamp: timestamp,
				DemoMode:           demoMode,
				UniqueRequestID:    requestID.String(),
				ProcessingInfo: model.ProcessingInfo{
					HasFaultData:      false,
					HasLocation:       e.Location != "",
					StatusAtRetrieval: model.StatusOutOfService,
				},
			},
		})
	}
	return records
}
