package processor

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luckymifta/dash-atm-collector/internal/clock"
	"github.com/luckymifta/dash-atm-collector/internal/model"
)

// cassetteRow is one element of the vendor's cashInfo array.
type cassetteRow struct {
	CassID              string          `json:"cassId"`
	CassLogicNbr        int             `json:"cassLogicNbr"`
	CassPhysNbr         int             `json:"cassPhysNbr"`
	CassTypeValue       string          `json:"cassTypeValue"`
	CassTypeDescription string          `json:"cassTypeDescription"`
	CassStatusValue     string          `json:"cassStatusValue"`
	CassStatusDesc      string          `json:"cassStatusDescription"`
	CassStatusColor     string          `json:"cassStatusColor"`
	Currency            *string         `json:"currency"`
	NotesVal            decimal.Decimal `json:"notesVal"`
	NbrNotes            int             `json:"nbrNotes"`
	CassTotal           decimal.Decimal `json:"cassTotal"`
	Percentage          decimal.Decimal `json:"percentage"`
	InstanceID          string          `json:"instanceId"`
	EventDateMillis     int64           `json:"eventDate"`
}

type cashInfoBody struct {
	CashInfo []json.RawMessage `json:"cashInfo"`
}

type terminalInfoFields struct {
	BusinessID   string `json:"businessId"`
	TechnicalID  string `json:"technicalCode"`
	ExternalID   string `json:"externalId"`
}

// CashRecord builds a model.CashRecord from the raw body of a P6
// cash-info call, following the null-record policy of spec.md §4.2/P6:
// a missing body, a missing cashInfo key, an empty cassette list, or a
// list with no structurally valid cassettes all collapse to a null
// record carrying a specific, distinguishable reason rather than being
// dropped or treated as an error.
func CashRecord(rawBody json.RawMessage, terminalInfo json.RawMessage, terminalID string, at time.Time) model.CashRecord {
	requestID := uuid.New()
	base := model.CashRecord{
		UniqueRequestID:    requestID,
		TerminalID:         terminalID,
		RetrievalTimestamp: clock.ToDili(at),
		EventDate:          clock.ToDili(at),
		RawCashData:        rawBody,
	}

	var info terminalInfoFields
	if len(terminalInfo) > 0 {
		_ = json.Unmarshal(terminalInfo, &info)
	}
	base.BusinessCode = info.BusinessID
	base.TechnicalCode = info.TechnicalID
	base.ExternalID = info.ExternalID

	if len(rawBody) == 0 {
		return nullCashRecord(base, model.NullReasonNoBody)
	}

	var body cashInfoBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return nullCashRecord(base, model.ProcessingErrorReason(err.Error()))
	}
	if body.CashInfo == nil {
		return nullCashRecord(base, model.NullReasonNoCashInfo)
	}
	if len(body.CashInfo) == 0 {
		return nullCashRecord(base, model.NullReasonNoCassetteData)
	}

	cassettes := make([]model.CassetteState, 0, len(body.CashInfo))
	var totalCash decimal.Decimal
	hasLowCashWarning := false
	hasCashErrors := false
	var firstEventDateMillis int64

	for _, raw := range body.CashInfo {
		var c cassetteRow
		if err := json.Unmarshal(raw, &c); err != nil || c.CassID == "" {
			// Mirrors the original's `if not isinstance(cassette, dict): continue` —
			// a structurally malformed entry is skipped, not fatal.
			continue
		}

		if len(cassettes) == 0 {
			firstEventDateMillis = c.EventDateMillis
		}

		cassettes = append(cassettes, model.CassetteState{
			CassetteID:        c.CassID,
			LogicalNumber:     c.CassLogicNbr,
			PhysicalNumber:    c.CassPhysNbr,
			Type:              c.CassTypeValue,
			TypeDescription:   c.CassTypeDescription,
			Status:            model.CassetteStatus(strings.ToUpper(c.CassStatusValue)),
			StatusDescription: c.CassStatusDesc,
			StatusColor:       c.CassStatusColor,
			Currency:          c.Currency,
			Denomination:      denomination(c.NotesVal),
			NoteCount:         c.NbrNotes,
			TotalValue:        c.CassTotal,
			Percentage:        c.Percentage,
			InstanceID:        c.InstanceID,
		})
		totalCash = totalCash.Add(c.CassTotal)

		switch strings.ToUpper(c.CassStatusValue) {
		case "LOW":
			hasLowCashWarning = true
		case "ERROR", "FAULT", "FAILED":
			hasCashErrors = true
		}
	}

	if len(cassettes) == 0 {
		return nullCashRecord(base, model.NullReasonInvalidCassettes)
	}

	if firstEventDateMillis > 0 {
		base.EventDate = clock.FromUnixMillisUTC(firstEventDateMillis)
	}

	currency := "USD"
	base.TotalCashAmount = &totalCash
	base.TotalCurrency = &currency
	base.CassettesData = cassettes
	base.CassetteCount = len(cassettes)
	base.HasLowCashWarning = hasLowCashWarning
	base.HasCashErrors = hasCashErrors
	base.IsNullRecord = false
	base.NullReason = nil

	return base
}

func nullCashRecord(base model.CashRecord, reason string) model.CashRecord {
	base.CassettesData = []model.CassetteState{}
	base.CassetteCount = 0
	base.HasLowCashWarning = false
	base.HasCashErrors = false
	base.IsNullRecord = true
	base.NullReason = &reason
	return base
}

func denomination(notesVal decimal.Decimal) *decimal.Decimal {
	if notesVal.IsZero() {
		return nil
	}
	return &notesVal
}
