// Package model holds the canonical record shapes of spec.md §3: the
// entities the Processor produces and the Persistence layer writes.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegionCodeTimorLesteDili is the only region in scope.
const RegionCodeTimorLesteDili = "TL-DL"

// RegionalSnapshot is a per-region aggregate count at one point in time.
type RegionalSnapshot struct {
	UniqueRequestID uuid.UUID

	RegionCode string

	CountAvailable    int
	CountWarning      int
	CountZombie       int
	CountWounded      int
	CountOutOfService int

	PercentAvailable    decimal.Decimal
	PercentWarning      decimal.Decimal
	PercentZombie       decimal.Decimal
	PercentWounded      decimal.Decimal
	PercentOutOfService decimal.Decimal

	DateCreation      time.Time
	TotalATMsInRegion int

	// RawRegionalData is the untouched fifth_graphic fragment for this
	// region, preserved verbatim in the raw_regional_data JSONB column.
	RawRegionalData json.RawMessage
}

// TerminalStatusVendorStatus collapses the vendor's richer status
// vocabulary into the canonical five states (spec.md §3.2).
type TerminalStatusVendorStatus string

const (
	VendorAvailable     TerminalStatusVendorStatus = "AVAILABLE"
	VendorWarning       TerminalStatusVendorStatus = "WARNING"
	VendorWounded       TerminalStatusVendorStatus = "WOUNDED"
	VendorHard          TerminalStatusVendorStatus = "HARD"
	VendorCash          TerminalStatusVendorStatus = "CASH"
	VendorZombie        TerminalStatusVendorStatus = "ZOMBIE"
	VendorOutOfService  TerminalStatusVendorStatus = "OUT_OF_SERVICE"
	VendorUnavailable   TerminalStatusVendorStatus = "UNAVAILABLE"
)

// Canonical terminal states.
const (
	StatusAvailable     = "AVAILABLE"
	StatusWarning       = "WARNING"
	StatusWounded       = "WOUNDED"
	StatusZombie        = "ZOMBIE"
	StatusOutOfService  = "OUT_OF_SERVICE"
)

// CollapseStatus implements the total function of spec.md §3.2.
// Unrecognised vendor values collapse to OUT_OF_SERVICE rather than
// panicking — an unknown status is treated as the least trustworthy
// one, never as "operational".
func CollapseStatus(vendor string) string {
	switch TerminalStatusVendorStatus(vendor) {
	case VendorAvailable:
		return StatusAvailable
	case VendorWarning:
		return StatusWarning
	case VendorWounded, VendorHard, VendorCash:
		return StatusWounded
	case VendorZombie:
		return StatusZombie
	case VendorOutOfService, VendorUnavailable:
		return StatusOutOfService
	default:
		return StatusOutOfService
	}
}

// IsOperational reports whether a canonical status counts toward the
// "availability percentage" union {AVAILABLE, WARNING}.
func IsOperational(canonicalStatus string) bool {
	return canonicalStatus == StatusAvailable || canonicalStatus == StatusWarning
}

// FaultData is the fault_data JSONB blob (spec.md §3.3); all fields
// are nullable strings sourced from faultList[0] when present.
type FaultData struct {
	Year                  *string `json:"year"`
	Month                 *string `json:"month"`
	Day                   *string `json:"day"`
	ExternalFaultID       *string `json:"externalFaultId"`
	AgentErrorDescription *string `json:"agentErrorDescription"`
	CreationDate          *string `json:"creationDate"`
}

// ProcessingInfo is embedded in Metadata.
type ProcessingInfo struct {
	HasFaultData      bool   `json:"has_fault_data"`
	HasLocation       bool   `json:"has_location"`
	StatusAtRetrieval string `json:"status_at_retrieval"`
}

// Metadata is the metadata JSONB blob (spec.md §3.3).
type Metadata struct {
	RetrievalTimestamp string         `json:"retrieval_timestamp"`
	DemoMode           bool           `json:"demo_mode"`
	UniqueRequestID    string         `json:"unique_request_id"`
	ProcessingInfo     ProcessingInfo `json:"processing_info"`
	IsNewlyDiscovered  bool           `json:"is_newly_discovered,omitempty"`
}

// TerminalStatusRecord is one observation of one terminal.
type TerminalStatusRecord struct {
	UniqueRequestID uuid.UUID

	TerminalID      string
	Location        string
	SerialNumber    string
	IssueStateName  string
	FetchedStatus   string

	RetrievedDate time.Time

	RawTerminalData json.RawMessage
	FaultData       FaultData
	Metadata        Metadata
}

// CassetteStatus is the cassette's own state vocabulary.
type CassetteStatus string

const (
	CassetteOK    CassetteStatus = "OK"
	CassetteLow   CassetteStatus = "LOW"
	CassetteError CassetteStatus = "ERROR"
	CassetteFault CassetteStatus = "FAULT"
	CassetteFailed CassetteStatus = "FAILED"
)

// CassetteState is one physical cash container inside a terminal.
type CassetteState struct {
	CassetteID        string           `json:"cassette_id"`
	LogicalNumber     int              `json:"logical_number"`
	PhysicalNumber    int              `json:"physical_number"`
	Type              string           `json:"type"`
	TypeDescription   string           `json:"type_description"`
	Status            CassetteStatus   `json:"status"`
	StatusDescription string           `json:"status_description"`
	StatusColor       string           `json:"status_color"`
	Currency          *string          `json:"currency,omitempty"`
	Denomination      *decimal.Decimal `json:"denomination,omitempty"`
	NoteCount         int              `json:"note_count"`
	TotalValue        decimal.Decimal  `json:"total_value"`
	Percentage        decimal.Decimal  `json:"percentage"`
	InstanceID        string           `json:"instance_id"`
}

// Null-record reasons, the closed enumeration of spec.md §4.2/P6.
const (
	NullReasonNoBody           = "No body data"
	NullReasonNoCashInfo       = "No cash info"
	NullReasonNoCassetteData   = "No cassette data"
	NullReasonInvalidCassettes = "Invalid cassette data"
)

// ProcessingErrorReason formats the "Processing error: …" null reason.
func ProcessingErrorReason(detail string) string {
	return "Processing error: " + detail
}

// CashRecord is one cash-position observation of one terminal.
type CashRecord struct {
	UniqueRequestID uuid.UUID

	TerminalID    string
	BusinessCode  string
	TechnicalCode string
	ExternalID    string

	RetrievalTimestamp time.Time
	EventDate          time.Time

	TotalCashAmount *decimal.Decimal
	TotalCurrency   *string

	CassettesData      []CassetteState
	CassetteCount      int
	HasLowCashWarning  bool
	HasCashErrors      bool

	IsNullRecord bool
	NullReason   *string

	RawCashData json.RawMessage
}
