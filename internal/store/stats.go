package store

import "github.com/BTreeMap/PromptCanvas/internal/models"

// Stats summarizes generation receipts.
type Stats struct {
	Total       int            `json:"total"`
	Generated   int            `json:"generated"`
	Failed      int            `json:"failed"`
	SuccessRate float64        `json:"success_rate"`
	BySource    map[string]int `json:"by_source"`
}

// ComputeStats aggregates receipts into attempt counts and a success rate.
func ComputeStats(receipts []models.Receipt) Stats {
	st := Stats{BySource: make(map[string]int)}
	for _, r := range receipts {
		st.Total++
		st.BySource[r.Source]++
		switch r.Status {
		case models.ReceiptStatusGenerated:
			st.Generated++
		case models.ReceiptStatusFailed:
			st.Failed++
		}
	}
	if st.Total > 0 {
		st.SuccessRate = float64(st.Generated) / float64(st.Total)
	}
	return st
}
