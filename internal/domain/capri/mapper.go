package capri

import (
	"math"

	"github.com/gridwatch/capri/internal/domain/threats"
)

// SectorWeights reflect mission-criticality defined by CISA. Energy,
// healthcare, finance and communications carry the most weight in
// CPCON posture decisions.
var SectorWeights = map[string]float64{
	"Energy":                              1.00,
	"Financial Services":                  0.95,
	"Communications":                      0.90,
	"Information Technology":              0.90,
	"Healthcare & Public Health":          0.90,
	"Water & Wastewater Systems":          0.85,
	"Transportation Systems":              0.85,
	"Emergency Services":                  0.85,
	"Defense Industrial Base":             0.80,
	"Food & Agriculture":                  0.75,
	"Government Facilities":               0.70,
	"Critical Manufacturing":              0.70,
	"Nuclear Reactors, Materials & Waste": 0.70,
	"Chemical":                            0.65,
	"Dams":                                0.60,
	"Commercial Facilities":               0.55,
}

var mappingThresholds = []float64{0.2, 0.4, 0.6, 0.8}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// ComputeCSS is the weighted composite severity score over the CAPRI
// category inputs.
func ComputeCSS(s CategoryScores) float64 {
	return round3(0.20*s.P + 0.15*s.X + 0.15*s.S + 0.15*s.U + 0.10*s.K + 0.15*s.C + 0.10*s.A)
}

// ComputeORIPrime blends CVSS context into the readiness input. Nil
// when any CVSS input is missing.
func ComputeORIPrime(cvss CVSSContext, css float64) *float64 {
	if cvss.I == nil || cvss.B == nil || cvss.Ehat == nil {
		return nil
	}
	v := round3(0.40**cvss.I + 0.20**cvss.B + 0.15**cvss.Ehat + 0.25*css)
	return &v
}

// MapCPCON maps a readiness input in [0,1] to a CPCON level, 5 (least
// severe) through 1 (most severe).
func MapCPCON(x float64) int {
	switch {
	case x < 0.20:
		return 5
	case x < 0.40:
		return 4
	case x < 0.60:
		return 3
	case x < 0.80:
		return 2
	default:
		return 1
	}
}

// ApplyOverrides lowers the level floor for postures and urgencies
// that demand a minimum readiness regardless of the computed score.
func ApplyOverrides(meta AlertMeta, css float64, baseLevel int) (final, floor int, overrides []Override) {
	floor = 5
	overrides = []Override{}

	sectorMatch := 0.0
	if meta.SectorMatch {
		sectorMatch = 1.0
	}

	if meta.Posture == PostureShieldsUp && sectorMatch >= 0.7 {
		floor = min(floor, 3)
		overrides = append(overrides, Override{
			Name:      "shields_up_sector_match",
			PreLevel:  baseLevel,
			PostLevel: 3,
			Reason:    "Shields Up posture targeting this sector",
		})
	}

	if meta.Urgency == "bod_or_emergency" && css >= 0.8 {
		floor = min(floor, 2)
		overrides = append(overrides, Override{
			Name:      "bod_urgency_css",
			PreLevel:  baseLevel,
			PostLevel: 2,
			Reason:    "BOD urgency and high CSS",
		})
	}

	if meta.CriticalFunctions && (meta.ObservedExploitation == "confirmed" || meta.ObservedExploitation == "likely") {
		floor = min(floor, 2)
		overrides = append(overrides, Override{
			Name:      "critical_exploitation",
			PreLevel:  baseLevel,
			PostLevel: 2,
			Reason:    "Critical functions with exploitation evidence",
		})
	}

	final = min(baseLevel, floor)
	return final, floor, overrides
}

// ProcessAlert evaluates one alert end to end: CSS, optional ORI',
// CPCON mapping and overrides.
func ProcessAlert(meta AlertMeta, scores CategoryScores, cvss *CVSSContext) Evaluation {
	return processAlert(meta, scores, cvss, nil)
}

// ProcessAlertWithAI additionally folds an AI severity judgment into
// the readiness input via the severity-to-impact mapping before CPCON
// levels are assigned.
func ProcessAlertWithAI(meta AlertMeta, scores CategoryScores, cvss *CVSSContext, severity int) Evaluation {
	impact := threats.ImpactFromSeverity(severity)
	return processAlert(meta, scores, cvss, &impact)
}

func processAlert(meta AlertMeta, scores CategoryScores, cvss *CVSSContext, impact *float64) Evaluation {
	css := ComputeCSS(scores)

	var oriPrime *float64
	if cvss != nil {
		oriPrime = ComputeORIPrime(*cvss, css)
	}

	baseInput := css
	if oriPrime != nil {
		baseInput = *oriPrime
	}
	if impact != nil {
		baseInput = clamp01(round3(baseInput + *impact))
	}

	baseLevel := MapCPCON(baseInput)
	finalLevel, floorLevel, overrides := ApplyOverrides(meta, css, baseLevel)

	rationale := "Base CPCON derived from ORI' or CSS"
	if len(overrides) > 0 {
		rationale = overrides[0].Reason
	}

	cvssOut := map[string]any{
		"I": nil, "b": nil, "Ehat": nil, "ORI_prime": oriPrime, "provided": cvss != nil,
	}
	if cvss != nil {
		cvssOut["I"] = cvss.I
		cvssOut["b"] = cvss.B
		cvssOut["Ehat"] = cvss.Ehat
	}

	return Evaluation{
		AlertMeta: meta,
		Scores: map[string]any{
			"P": scores.P, "X": scores.X, "S": scores.S, "U": scores.U,
			"K": scores.K, "C": scores.C, "A": scores.A,
			"CSS": css,
		},
		CVSS: cvssOut,
		CPCON: CPCON{
			BaseLevel:         baseLevel,
			FinalLevel:        finalLevel,
			FloorLevel:        floorLevel,
			MappingThresholds: mappingThresholds,
			Rationale:         rationale,
		},
		Overrides: overrides,
		AIImpact:  impact,
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
