package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwatch/capri/internal/domain/threats"
)

func TestBuildThreatPrompt_ContainsItemsAndInstructions(t *testing.T) {
	items := []threats.Item{
		{ID: "t-1", Title: "Substation malware", Description: "ICS-targeted implant", Source: "CISA"},
		{ID: "t-2", Title: "VPN CVE", Description: "Pre-auth RCE in appliance", Source: "vendor"},
	}

	p := BuildThreatPrompt(items)

	assert.Contains(t, p, `"id":"t-1"`)
	assert.Contains(t, p, `"id":"t-2"`)
	assert.Contains(t, p, "bare JSON array")
	assert.Contains(t, p, `"apt"`)
	assert.Contains(t, p, `"historical"`)
	assert.Contains(t, p, "severityScore")
}

func TestBuildThreatPrompt_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("x", 2000)
	items := []threats.Item{{ID: "t-1", Title: "Long advisory", Description: long, Source: "feed"}}

	p := BuildThreatPrompt(items)

	assert.NotContains(t, p, strings.Repeat("x", 501))
	assert.Contains(t, p, strings.Repeat("x", 500))
}

func TestBuildThreatPrompt_ShortDescriptionUntouched(t *testing.T) {
	items := []threats.Item{{ID: "t-1", Title: "Short", Description: "brief note", Source: "feed"}}

	p := BuildThreatPrompt(items)

	require.Contains(t, p, `"description":"brief note"`)
}
