package dto

import "quantshared/internal/domain"

// IngestRequest carries a batch of bars to store.
// Bar constraints are checked per bar by the store, not when the request is decoded.
type IngestRequest struct {
	Source string            `json:"source" default:"api"`
	Bars   []domain.OHLCVBar `json:"bars" validate:"min=1"`
}

// SymbolIngestResult is the outcome for the bars of one symbol
type SymbolIngestResult struct {
	Symbol   string   `json:"symbol"`
	Inserted int      `json:"inserted"`
	Errors   []string `json:"errors,omitempty"`
}

// IngestResponse summarises a whole batch
type IngestResponse struct {
	Inserted int                  `json:"inserted"`
	Rejected int                  `json:"rejected"`
	Symbols  []SymbolIngestResult `json:"symbols"`
}
