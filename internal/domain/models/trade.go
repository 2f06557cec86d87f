package models

// Trade is a single quote received from the market-data feed.
type Trade struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}

// QuoteBatch is one tick of the ticker set: the quotes aggregated into a single observation.
type QuoteBatch struct {
	Timestamp int64     `json:"ts"` // unix ms
	Values    []float64 `json:"values"`
}
