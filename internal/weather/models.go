package weather

import (
	"time"
)

// IngestStatus tells whether an ingestion produced a new record.
type IngestStatus string

const (
	StatusCreated   IngestStatus = "created"
	StatusDuplicate IngestStatus = "duplicate"
)

// Record is a single stored weather observation for a city.
// Every field except ID is optional; records are never updated after insert.
type Record struct {
	ID int64 `json:"id"`

	City    *string `json:"cidade"`
	Country *string `json:"pais"`

	TempC      *float64 `json:"temperatura_c"`
	TempF      *float64 `json:"temperatura_f"`
	FeelsLikeC *float64 `json:"sensacao_termica_c"`
	FeelsLikeF *float64 `json:"sensacao_termica_f"`

	Condition  *string    `json:"descricao_clima"`
	RecordedAt *time.Time `json:"registrado_em"`
	ObservedAt *time.Time `json:"data_previsao"` // provider's last_updated, minute precision

	WindMph    *float64 `json:"vento_mph"`
	WindKph    *float64 `json:"vento_kph"`
	WindDegree *int     `json:"vento_grau"`
	WindDir    *string  `json:"vento_direcao"`

	PressureMb *float64 `json:"pressao_mb"`
	PressureIn *float64 `json:"pressao_in"`

	PrecipMm *float64 `json:"precipitacao_mm"`
	Humidity *int     `json:"umidade"`
	Cloud    *int     `json:"nuvens"`
}

// Observation is the provider's view of the current weather for a location,
// before normalization. LastUpdated is kept raw so parsing stays in the service.
type Observation struct {
	Name        string
	Country     string
	LastUpdated string

	TempC      *float64
	TempF      *float64
	FeelsLikeC *float64
	FeelsLikeF *float64
	Condition  *string

	WindMph    *float64
	WindKph    *float64
	WindDegree *int
	WindDir    *string

	PressureMb *float64
	PressureIn *float64
	PrecipMm   *float64
	Humidity   *int
	Cloud      *int
}

// IngestResult is the outcome of a single Service.Ingest call.
type IngestResult struct {
	Status  IngestStatus `json:"status"`
	Message string       `json:"message"`
	Record  Record       `json:"-"`
}
