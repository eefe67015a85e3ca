package capri

// Posture values carried on CISA alerts
const (
	PostureShieldsUp    = "Shields Up"
	PostureShieldsReady = "Shields Ready"
)

// AlertMeta describes the alert being evaluated.
type AlertMeta struct {
	Title                string `json:"title,omitempty"`
	Timestamp            string `json:"timestamp,omitempty"`
	Posture              string `json:"posture"`
	SectorMatch          bool   `json:"sector_match"`
	Urgency              string `json:"urgency"`
	CriticalFunctions    bool   `json:"critical_functions"`
	ObservedExploitation string `json:"observed_exploitation"`
}

// CategoryScores are the weighted CAPRI inputs.
type CategoryScores struct {
	P float64 `json:"P"` // posture
	X float64 `json:"X"` // observed exploitation
	S float64 `json:"S"` // sector match
	U float64 `json:"U"` // urgency
	K float64 `json:"K"` // KEV inclusion
	C float64 `json:"C"` // critical functions
	A float64 `json:"A"` // analyst confidence
}

// CVSSContext is optional CVSS-derived context; all three inputs must
// be present for ORI' to be computed.
type CVSSContext struct {
	I    *float64 `json:"I"`
	B    *float64 `json:"b"`
	Ehat *float64 `json:"Ehat"`
}

// Override records a floor applied on top of the base CPCON level.
type Override struct {
	Name      string `json:"name"`
	PreLevel  int    `json:"pre_level"`
	PostLevel int    `json:"post_level"`
	Reason    string `json:"reason"`
}

// CPCON is the readiness outcome of an evaluation.
type CPCON struct {
	BaseLevel         int       `json:"base_level"`
	FinalLevel        int       `json:"final_level"`
	FloorLevel        int       `json:"floor_level"`
	MappingThresholds []float64 `json:"mapping_thresholds"`
	Rationale         string    `json:"rationale"`
}

// Evaluation is the full envelope returned for a processed alert.
type Evaluation struct {
	AlertMeta AlertMeta      `json:"alert_meta"`
	Scores    map[string]any `json:"scores"`
	CVSS      map[string]any `json:"cvss_context"`
	CPCON     CPCON          `json:"cpcon"`
	Overrides []Override     `json:"overrides_applied"`
	AIImpact  *float64       `json:"ai_impact,omitempty"`
}
