package models

// Requests for pattern HTTP endpoints.

type HistoryRequest struct {
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
	Order string `query:"order" json:"order" default:"desc" validate:"oneof=asc desc"`
}

type ArchiveRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}

type IngestRequest struct {
	Values []float64 `json:"values" validate:"required,min=1"`
}
