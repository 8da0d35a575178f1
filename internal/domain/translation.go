package domain

import (
	"errors"
	"time"
)

var (
	// ErrUnsupportedLanguage is returned for a target language code outside the registry.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrInferenceFailure wraps every failure to load or invoke a translation model.
	ErrInferenceFailure = errors.New("translation failed")

	// ErrStorageUnavailable wraps every failure of the audit store.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCacheClosed is returned by a model cache after shutdown.
	ErrCacheClosed = errors.New("model cache closed")
)

// DefaultTargetLanguage is used when a request omits the target language.
const DefaultTargetLanguage = "de"

// TranslationRequest is one inbound translate call.
type TranslationRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_lang"`
}

// TranslationResult is the outcome of a single translation.
type TranslationResult struct {
	TranslatedText string  `json:"translated_text"`
	TargetLanguage string  `json:"target_lang"`
	ModelID        string  `json:"-"`
	ElapsedMillis  float64 `json:"processing_time_ms"`
}

// AuditRecord is a persisted request/response pair. Records are append-only.
type AuditRecord struct {
	ID                   string    `json:"id" bson:"-" gorm:"column:id;primaryKey"`
	InputText            string    `json:"input_text" bson:"input_text" gorm:"column:input_text;type:text"`
	OutputText           string    `json:"output_text" bson:"output_text" gorm:"column:output_text;type:text"`
	Timestamp            time.Time `json:"timestamp" bson:"timestamp" gorm:"column:timestamp;index"`
	ModelID              string    `json:"model" bson:"model" gorm:"column:model"`
	TargetLanguage       string    `json:"target_language" bson:"target_language" gorm:"column:target_language;size:16"`
	InputLength          int       `json:"input_length" bson:"input_length" gorm:"column:input_length"`
	ProcessingTimeMillis float64   `json:"processing_time_ms" bson:"processing_time_ms" gorm:"column:processing_time_ms"`
}

func (AuditRecord) TableName() string {
	return "translation_logs"
}
