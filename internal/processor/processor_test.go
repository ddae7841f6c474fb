package processor_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckymifta/dash-atm-collector/internal/model"
	"github.com/luckymifta/dash-atm-collector/internal/processor"
)

func TestFifthGraphicFiltersToDili(t *testing.T) {
	raw := json.RawMessage(`[
		{"hc-key":"TL-BA","state_count":{"AVAILABLE":"1.0"}},
		{"hc-key":"TL-DL","state_count":{"AVAILABLE":"0.78571427","WOUNDED":"0.14285714","WARNING":"0.07142857"}}
	]`)

	region, fragment, ok := processor.FifthGraphic(raw)
	require.True(t, ok)
	assert.Equal(t, "TL-DL", region.RegionCode)
	assert.Contains(t, string(fragment), "TL-DL")
}

func TestFifthGraphicNoMatchingRegion(t *testing.T) {
	raw := json.RawMessage(`[{"hc-key":"TL-BA","state_count":{"AVAILABLE":"1.0"}}]`)
	_, _, ok := processor.FifthGraphic(raw)
	assert.False(t, ok)
}

func TestRegionalSnapshotRoundsPercentagesToCounts(t *testing.T) {
	region := processor.FifthGraphicRegion{
		RegionCode: "TL-DL",
		StateCount: map[string]string{
			"AVAILABLE": "0.78571427",
			"WOUNDED":   "0.14285714",
			"WARNING":   "0.07142857",
		},
	}
	snap := processor.RegionalSnapshot(region, json.RawMessage(`{}`), 14, time.Now())

	assert.Equal(t, 11, snap.CountAvailable)
	assert.Equal(t, 2, snap.CountWounded)
	assert.Equal(t, 1, snap.CountWarning)
	assert.Equal(t, 14, snap.TotalATMsInRegion)
	assert.Equal(t, model.RegionCodeTimorLesteDili, snap.RegionCode)

	// Percentages are stored on the vendor's own [0,1] decimal scale,
	// not rescaled to 0-100.
	assert.True(t, snap.PercentAvailable.Equal(decimal.RequireFromString("0.78571427")))
	assert.True(t, snap.PercentWounded.Equal(decimal.RequireFromString("0.14285714")))
	assert.True(t, snap.PercentWarning.Equal(decimal.RequireFromString("0.07142857")))
}

func TestTerminalStatusRecordUsesFaultList(t *testing.T) {
	raw := json.RawMessage(`[{
		"terminalId": "83",
		"location": "Dili Branch",
		"serialNumber": "SN-83",
		"issueStateName": "WOUNDED",
		"faultList": [{"year":"2026","month":"08","day":"01","externalFaultId":"F-1","agentErrorDescription":"card reader jam","creationDate":"1753977600000"}]
	}]`)

	at := time.Date(2026, time.August, 1, 14, 30, 5, 0, time.UTC)
	rec, err := processor.TerminalStatusRecord(raw, "WOUNDED", false, uuid.New(), at)
	require.NoError(t, err)

	assert.Equal(t, "83", rec.TerminalID)
	assert.Equal(t, model.StatusWounded, rec.FetchedStatus)
	assert.True(t, rec.Metadata.ProcessingInfo.HasFaultData)
	require.NotNil(t, rec.FaultData.ExternalFaultID)
	assert.Equal(t, "F-1", *rec.FaultData.ExternalFaultID)
	require.NotNil(t, rec.FaultData.CreationDate)

	// fault_data.creationDate uses the vendor's DD:MM:YYYY HH:MM:SS
	// format, not ISO-8601.
	assert.Regexp(t, `^\d{2}:\d{2}:\d{4} \d{2}:\d{2}:\d{2}$`, *rec.FaultData.CreationDate)

	// metadata.retrieval_timestamp is ISO-8601, not the fault-block format.
	_, err = time.Parse(time.RFC3339, rec.Metadata.RetrievalTimestamp)
	assert.NoError(t, err)
}

func TestTerminalStatusRecordWithoutFaultList(t *testing.T) {
	raw := json.RawMessage(`[{"terminalId":"90","location":"","serialNumber":"SN-90","issueStateName":"AVAILABLE"}]`)

	rec, err := processor.TerminalStatusRecord(raw, "AVAILABLE", false, uuid.New(), time.Now())
	require.NoError(t, err)

	assert.False(t, rec.Metadata.ProcessingInfo.HasFaultData)
	assert.False(t, rec.Metadata.ProcessingInfo.HasLocation)
	assert.Nil(t, rec.FaultData.ExternalFaultID)
}

func TestTerminalStatusRecordEmptyBodyErrors(t *testing.T) {
	_, err := processor.TerminalStatusRecord(json.RawMessage(`[]`), "AVAILABLE", false, uuid.New(), time.Now())
	assert.Error(t, err)
}

func TestCashRecordNullReasonNoBody(t *testing.T) {
	rec := processor.CashRecord(nil, nil, "83", time.Now())
	require.True(t, rec.IsNullRecord)
	require.NotNil(t, rec.NullReason)
	assert.Equal(t, model.NullReasonNoBody, *rec.NullReason)
}

func TestCashRecordNullReasonNoCashInfoKey(t *testing.T) {
	rec := processor.CashRecord(json.RawMessage(`{}`), nil, "83", time.Now())
	require.True(t, rec.IsNullRecord)
	assert.Equal(t, model.NullReasonNoCashInfo, *rec.NullReason)
}

func TestCashRecordNullReasonEmptyCassetteList(t *testing.T) {
	rec := processor.CashRecord(json.RawMessage(`{"cashInfo":[]}`), nil, "83", time.Now())
	require.True(t, rec.IsNullRecord)
	assert.Equal(t, model.NullReasonNoCassetteData, *rec.NullReason)
}

func TestCashRecordNullReasonAllCassettesStructurallyInvalid(t *testing.T) {
	raw := json.RawMessage(`{"cashInfo":["not-an-object", 42, {"cassLogicNbr":1}]}`)

	rec := processor.CashRecord(raw, nil, "83", time.Now())
	require.True(t, rec.IsNullRecord)
	require.NotNil(t, rec.NullReason)
	assert.Equal(t, model.NullReasonInvalidCassettes, *rec.NullReason)
}

func TestCashRecordSkipsInvalidEntriesButKeepsValidOnes(t *testing.T) {
	raw := json.RawMessage(`{"cashInfo":[
		"not-an-object",
		{"cassId":"PCU00","cassStatusValue":"OK","cassTotal":0,"nbrNotes":14,"instanceId":"i0"}
	]}`)

	rec := processor.CashRecord(raw, nil, "83", time.Now())
	require.False(t, rec.IsNullRecord)
	assert.Equal(t, 1, rec.CassetteCount)
}

func TestCashRecordValidCassettesFlagsLowAndError(t *testing.T) {
	raw := json.RawMessage(`{"cashInfo":[
		{"cassId":"PCU00","cassStatusValue":"OK","cassTotal":0,"nbrNotes":14,"instanceId":"i0"},
		{"cassId":"PCU01","cassStatusValue":"LOW","cassTotal":10840,"nbrNotes":542,"instanceId":"i1"},
		{"cassId":"PCU02","cassStatusValue":"ERROR","cassTotal":0,"nbrNotes":0,"instanceId":"i2"}
	]}`)

	rec := processor.CashRecord(raw, nil, "83", time.Now())

	require.False(t, rec.IsNullRecord)
	assert.Nil(t, rec.NullReason)
	assert.Equal(t, 3, rec.CassetteCount)
	assert.True(t, rec.HasLowCashWarning)
	assert.True(t, rec.HasCashErrors)
	require.NotNil(t, rec.TotalCashAmount)
	assert.True(t, rec.TotalCashAmount.Equal(decimal.NewFromInt(10840)))
}
