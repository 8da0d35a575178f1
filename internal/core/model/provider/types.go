package provider

import (
	"context"

	"github.com/ClareAI/astra-translation-service/internal/config"
)

// BackendType names an inference backend implementation
type BackendType string

const (
	BackendTypeHuggingFace BackendType = "huggingface"
	BackendTypeOpenAI      BackendType = "openai"
)

// String returns the string representation of BackendType
func (bt BackendType) String() string {
	return string(bt)
}

// DecodingParams are the fixed generation settings passed to every inference call.
type DecodingParams struct {
	MaxLength     int  `json:"max_length"`
	NumBeams      int  `json:"num_beams"`
	EarlyStopping bool `json:"early_stopping"`
}

// DefaultDecodingParams bound output length and use beam search for quality.
var DefaultDecodingParams = DecodingParams{
	MaxLength:     512,
	NumBeams:      4,
	EarlyStopping: true,
}

// Handle is a loaded translation model for exactly one target language.
// Implementations must be safe for concurrent Translate calls.
// A Handle may also implement io.Closer to release resources on eviction.
type Handle interface {
	// ModelID returns the identifier of the model backing this handle
	ModelID() string

	// Translate runs inference on English text and returns the translated text
	Translate(ctx context.Context, text string, params DecodingParams) (string, error)
}

// Backend acquires translation capability for a language.
type Backend interface {
	// Type returns the backend type
	Type() BackendType

	// Load prepares a handle for lang. It may be slow; an unknown model id fails here.
	Load(ctx context.Context, lang config.Language) (Handle, error)
}
