package threats

import "time"

// ItemID tipe untuk threat item
type ItemID string

// ThreatType enum
type ThreatType string

const (
	TypeAPT           ThreatType = "apt"
	TypeRansomware    ThreatType = "ransomware"
	TypeVulnerability ThreatType = "vulnerability"
	TypeSupplyChain   ThreatType = "supply-chain"
	TypeOther         ThreatType = "other"
)

// Urgency enum
type Urgency string

const (
	UrgencyActive     Urgency = "active"
	UrgencyImminent   Urgency = "imminent"
	UrgencyEmerging   Urgency = "emerging"
	UrgencyHistorical Urgency = "historical"
)

// Item is a single intelligence record to be scored.
type Item struct {
	ID          ItemID    `json:"id"`
	TenantID    string    `json:"tenant_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	FetchedAt   time.Time `json:"fetched_at,omitempty"`
}

// AnalysisResult is the strict per-item judgment produced by the
// response normalizer. Every field is guaranteed valid: severity in
// [1,10], enums in their closed sets, slices never nil.
type AnalysisResult struct {
	ID                string     `json:"id"`
	SeverityScore     int        `json:"severityScore"`
	ThreatType        ThreatType `json:"threatType"`
	Urgency           Urgency    `json:"urgency"`
	AffectedVendors   []string   `json:"affectedVendors"`
	AffectedSystems   []string   `json:"affectedSystems"`
	AffectedProtocols []string   `json:"affectedProtocols"`
	Rationale         string     `json:"rationale"`
}

func validThreatType(v string) bool {
	switch ThreatType(v) {
	case TypeAPT, TypeRansomware, TypeVulnerability, TypeSupplyChain, TypeOther:
		return true
	}
	return false
}

func validUrgency(v string) bool {
	switch Urgency(v) {
	case UrgencyActive, UrgencyImminent, UrgencyEmerging, UrgencyHistorical:
		return true
	}
	return false
}
