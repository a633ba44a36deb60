package models

// ECBResponse mirrors the slice of the ECB data API payload we read when
// resolving exchange rates.
type ECBResponse struct {
	DataSets []struct {
		Series map[string]struct {
			Observations map[string][]float64 `json:"observations"`
		} `json:"series"`
	} `json:"dataSets"`
}
