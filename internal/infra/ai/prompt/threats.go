package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/gridwatch/capri/internal/domain/threats"
)

// maxDescriptionLen bounds each item description so prompt size stays
// predictable regardless of feed verbosity.
const maxDescriptionLen = 500

const threatRubric = `You are a cyber-threat analyst for the energy sector. Score each threat item below for relevance to energy-sector infrastructure (power generation, transmission, distribution, ICS/SCADA, grid operators).

For every item return an object with:
- "id": the item id, unchanged
- "severityScore": integer 1-10, operational criticality to energy infrastructure
- "threatType": one of "apt", "ransomware", "vulnerability", "supply-chain", "other"
- "urgency": one of "active", "imminent", "emerging", "historical"
- "affectedVendors": array of vendor names (may be empty)
- "affectedSystems": array of affected systems (may be empty)
- "affectedProtocols": array of affected protocols (may be empty)
- "rationale": one or two sentences explaining the score`

type promptItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// BuildThreatPrompt serializes a batch of threat items into one prompt
// carrying the scoring rubric and the reply-shape instruction. Callers
// must not invoke it with an empty batch; an empty batch means no
// request at all.
func BuildThreatPrompt(items []threats.Item) string {
	payload := make([]promptItem, 0, len(items))
	for _, it := range items {
		desc := it.Description
		if r := []rune(desc); len(r) > maxDescriptionLen {
			desc = string(r[:maxDescriptionLen])
		}
		payload = append(payload, promptItem{
			ID:          string(it.ID),
			Title:       it.Title,
			Description: desc,
			Source:      it.Source,
		})
	}
	b, _ := json.Marshal(payload)

	return fmt.Sprintf("%s\n\nThreat items:\n%s\n\nRespond with a bare JSON array of result objects, one per item, in the same order. No markdown, no commentary, no code fences.", threatRubric, b)
}
