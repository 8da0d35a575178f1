package config

import (
	"fmt"

	"github.com/ClareAI/astra-translation-service/internal/domain"
)

// Language describes one supported translation target.
type Language struct {
	Code        string `json:"code"`
	ModelID     string `json:"model_id"`
	DisplayName string `json:"display_name"`
}

// SupportedLanguages is the fixed set of target languages, in display order.
// Source text is always English.
var SupportedLanguages = []Language{
	{Code: "de", ModelID: "Helsinki-NLP/opus-mt-en-de", DisplayName: "German"},
	{Code: "fr", ModelID: "Helsinki-NLP/opus-mt-en-fr", DisplayName: "French"},
	{Code: "es", ModelID: "Helsinki-NLP/opus-mt-en-es", DisplayName: "Spanish"},
	{Code: "it", ModelID: "Helsinki-NLP/opus-mt-en-it", DisplayName: "Italian"},
	{Code: "pt", ModelID: "Helsinki-NLP/opus-mt-en-pt", DisplayName: "Portuguese"},
	{Code: "ru", ModelID: "Helsinki-NLP/opus-mt-en-ru", DisplayName: "Russian"},
	{Code: "zh", ModelID: "Helsinki-NLP/opus-mt-en-zh", DisplayName: "Chinese"},
}

// LanguageRegistry is an immutable lookup table of languages keyed by code.
type LanguageRegistry struct {
	ordered []Language
	byCode  map[string]Language
}

// NewLanguageRegistry builds a registry from the given entries. Duplicate codes are rejected.
func NewLanguageRegistry(languages []Language) (*LanguageRegistry, error) {
	r := &LanguageRegistry{
		ordered: make([]Language, 0, len(languages)),
		byCode:  make(map[string]Language, len(languages)),
	}
	for _, lang := range languages {
		if lang.Code == "" || lang.ModelID == "" {
			return nil, fmt.Errorf("language entry %q: code and model id are required", lang.Code)
		}
		if _, exists := r.byCode[lang.Code]; exists {
			return nil, fmt.Errorf("duplicate language code: %s", lang.Code)
		}
		r.ordered = append(r.ordered, lang)
		r.byCode[lang.Code] = lang
	}
	return r, nil
}

// DefaultLanguageRegistry returns a registry over SupportedLanguages.
func DefaultLanguageRegistry() *LanguageRegistry {
	r, err := NewLanguageRegistry(SupportedLanguages)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the language for code, or an error wrapping domain.ErrUnsupportedLanguage.
func (r *LanguageRegistry) Resolve(code string) (Language, error) {
	lang, ok := r.byCode[code]
	if !ok {
		return Language{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedLanguage, code)
	}
	return lang, nil
}

// IsSupported reports whether code is a known target language.
func (r *LanguageRegistry) IsSupported(code string) bool {
	_, ok := r.byCode[code]
	return ok
}

// List returns a copy of all languages in declaration order.
func (r *LanguageRegistry) List() []Language {
	out := make([]Language, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Codes returns all language codes in declaration order.
func (r *LanguageRegistry) Codes() []string {
	codes := make([]string, 0, len(r.ordered))
	for _, lang := range r.ordered {
		codes = append(codes, lang.Code)
	}
	return codes
}

// Len returns the number of supported languages.
func (r *LanguageRegistry) Len() int {
	return len(r.ordered)
}
