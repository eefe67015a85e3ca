package analyst

import "time"

// AnalysisID identifier type
type AnalysisID string

// Analysis represents a stored AI analysis batch for auditing and retrieval
type Analysis struct {
	ID        AnalysisID `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Model     string     `json:"model"`
	BatchSize int        `json:"batch_size"`
	Result    string     `json:"result"` // normalized results, JSON array
	CreatedAt time.Time  `json:"created_at"`
}
