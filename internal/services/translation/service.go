package translation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ClareAI/astra-translation-service/internal/config"
	"github.com/ClareAI/astra-translation-service/internal/core/model/provider"
	"github.com/ClareAI/astra-translation-service/internal/core/tracking"
	"github.com/ClareAI/astra-translation-service/internal/domain"
	"github.com/ClareAI/astra-translation-service/pkg/logger"
	"go.uber.org/zap"
)

// DefaultExperiment names the tracking experiment translations are recorded under
const DefaultExperiment = "translation_service"

// HandleSource hands out loaded model handles by language code
type HandleSource interface {
	Acquire(ctx context.Context, code string) (provider.Handle, error)
}

// Options tune the executor
type Options struct {
	Decoding   provider.DecodingParams
	Timeout    time.Duration // per inference call; zero disables
	Experiment string
}

// Service runs one translation against a cached model handle and times it.
type Service struct {
	registry *config.LanguageRegistry
	models   HandleSource
	tracker  *tracking.Recorder
	opts     Options
}

// NewService creates a translation executor
func NewService(registry *config.LanguageRegistry, models HandleSource, tracker *tracking.Recorder, opts Options) *Service {
	if tracker == nil {
		tracker = tracking.NewRecorder(nil, 0)
	}
	if opts.Decoding == (provider.DecodingParams{}) {
		opts.Decoding = provider.DefaultDecodingParams
	}
	if opts.Experiment == "" {
		opts.Experiment = DefaultExperiment
	}
	return &Service{
		registry: registry,
		models:   models,
		tracker:  tracker,
		opts:     opts,
	}
}

// Translate translates English text into targetLanguage.
// Unknown codes fail with ErrUnsupportedLanguage; every load or inference error is
// reported as ErrInferenceFailure carrying the underlying message.
func (s *Service) Translate(ctx context.Context, text, targetLanguage string) (*domain.TranslationResult, error) {
	lang, err := s.registry.Resolve(targetLanguage)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return &domain.TranslationResult{
			TranslatedText: "",
			TargetLanguage: lang.Code,
			ModelID:        lang.ModelID,
			ElapsedMillis:  0,
		}, nil
	}

	log := logger.FromContext(ctx).With(zap.String("target_language", lang.Code))
	inputLength := utf8.RuneCountInString(text)

	run := tracking.NewRun(s.opts.Experiment)
	run.LogParam("model", lang.ModelID)
	run.LogParam("target_language", lang.Code)
	run.LogParam("input_length", strconv.Itoa(inputLength))
	run.LogText(text, "input.txt")

	handle, err := s.models.Acquire(ctx, lang.Code)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedLanguage) {
			return nil, err
		}
		log.Error("failed to acquire model", zap.String("model", lang.ModelID), zap.Error(err))
		run.LogParam("error", err.Error())
		s.tracker.Record(ctx, run)
		return nil, fmt.Errorf("%w: %v", domain.ErrInferenceFailure, err)
	}
	run.LogParam("model", handle.ModelID())

	callCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := s.invoke(callCtx, handle, text)
	elapsed := time.Since(start)
	elapsedMillis := float64(elapsed) / float64(time.Millisecond)

	run.LogMetric("inference_time_ms", elapsedMillis)
	if err != nil {
		log.Error("inference failed",
			zap.String("model", handle.ModelID()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		run.LogParam("error", err.Error())
		s.tracker.Record(ctx, run)
		return nil, fmt.Errorf("%w: %v", domain.ErrInferenceFailure, err)
	}

	run.LogText(output, "output.txt")
	s.tracker.Record(ctx, run)

	log.Debug("translation completed",
		zap.String("model", handle.ModelID()),
		zap.Int("input_length", inputLength),
		zap.Duration("elapsed", elapsed))

	return &domain.TranslationResult{
		TranslatedText: output,
		TargetLanguage: lang.Code,
		ModelID:        handle.ModelID(),
		ElapsedMillis:  elapsedMillis,
	}, nil
}

// invoke calls the handle, converting a panic inside a backend into an error
func (s *Service) invoke(ctx context.Context, handle provider.Handle, text string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("inference panicked: %v", p)
		}
	}()
	return handle.Translate(ctx, text, s.opts.Decoding)
}
