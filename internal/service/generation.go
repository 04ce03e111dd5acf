package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/rediscache"
	"github.com/botaqiy/botaqiy/internal/metrics"
)

var ErrEmptyText = errors.New("invalid text input")

// DefaultFlashcardCount is used when a request does not say how many cards it wants.
const DefaultFlashcardCount = 10

var (
	whitespaceRun = regexp.MustCompile(`[\s\p{Z}]+`)
	disallowed    = regexp.MustCompile(`[^\w\s\x{0600}-\x{06FF}.,!?;:()\-]`)
	sentenceEnd   = regexp.MustCompile(`[.!?]+`)
	wordSplit     = regexp.MustCompile(`\s+`)
)

// ExtractedText is pasted text prepared for flashcard generation.
type ExtractedText struct {
	Cleaned   string   `json:"cleaned"`
	Sentences []string `json:"sentences"`
	WordCount int      `json:"wordCount"`
}

// ExtractText collapses whitespace, strips characters other than word
// characters, Arabic letters and basic punctuation, and splits the result
// into sentences.
func ExtractText(text string) (*ExtractedText, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	cleaned := whitespaceRun.ReplaceAllString(text, " ")
	cleaned = disallowed.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	sentences := make([]string, 0)
	for _, s := range sentenceEnd.Split(cleaned, -1) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}

	return &ExtractedText{
		Cleaned:   cleaned,
		Sentences: sentences,
		WordCount: len(wordSplit.Split(cleaned, -1)),
	}, nil
}

// FlashcardRequest asks for count flashcards about Text.
type FlashcardRequest struct {
	Text  string `json:"text" validate:"required"`
	Count int    `json:"count" validate:"gte=1,lte=50"`
}

// ScenarioRequest asks for a scenario built from Flashcards.
type ScenarioRequest struct {
	Flashcards []entities.Flashcard `json:"flashcards" validate:"required,min=1"`
	Difficulty entities.Difficulty  `json:"difficulty" validate:"difficulty"`
}

// GenerationService produces flashcards and scenarios, consulting the cache
// first when one is configured.
type GenerationService struct {
	generator            Generator
	cache                GenerationCache
	validator            *RequestValidator
	metrics              *metrics.Metrics
	logger               *zap.Logger
	flashcardTemperature float64
	scenarioTemperature  float64
}

// NewGenerationService creates the service. cache and m may be nil.
func NewGenerationService(
	generator Generator,
	cache GenerationCache,
	validator *RequestValidator,
	m *metrics.Metrics,
	logger *zap.Logger,
	flashcardTemperature, scenarioTemperature float64,
) *GenerationService {
	return &GenerationService{
		generator:            generator,
		cache:                cache,
		validator:            validator,
		metrics:              m,
		logger:               logger,
		flashcardTemperature: flashcardTemperature,
		scenarioTemperature:  scenarioTemperature,
	}
}

// GenerateFlashcards turns text into flashcards.
func (s *GenerationService) GenerateFlashcards(ctx context.Context, req FlashcardRequest) ([]entities.Flashcard, error) {
	if req.Count == 0 {
		req.Count = DefaultFlashcardCount
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	key := s.cacheKey("flashcards", req)

	var cards []entities.Flashcard
	if s.lookup(ctx, key, &cards) {
		return cards, nil
	}

	cards, err := s.generator.GenerateFlashcards(ctx, req.Text, req.Count, s.flashcardTemperature)
	s.observe("flashcards", err)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, cards)
	return cards, nil
}

// GenerateScenario builds a free-form scenario around the given cards.
func (s *GenerationService) GenerateScenario(ctx context.Context, req ScenarioRequest) (*entities.GeneratedScenario, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	key := s.cacheKey("scenario", req)

	var cached entities.GeneratedScenario
	if s.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	scenario, err := s.generator.GenerateScenario(ctx, req.Flashcards, req.Difficulty, s.scenarioTemperature)
	s.observe("scenario", err)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, scenario)
	return scenario, nil
}

func (s *GenerationService) cacheKey(kind string, req any) string {
	if s.cache == nil {
		return ""
	}

	key, err := rediscache.Key(kind, req)
	if err != nil {
		s.logger.Warn("failed to build cache key", zap.String("kind", kind), zap.Error(err))
		return ""
	}
	return key
}

func (s *GenerationService) lookup(ctx context.Context, key string, dest any) bool {
	if key == "" {
		return false
	}

	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("generation cache unavailable", zap.Error(err))
		found = false
	}

	if s.metrics != nil {
		result := "miss"
		if found {
			result = "hit"
		}
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}

	return found
}

func (s *GenerationService) store(ctx context.Context, key string, value any) {
	if key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("failed to cache generation", zap.Error(err))
	}
}

func (s *GenerationService) observe(kind string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.LLMRequests.WithLabelValues(kind, outcome).Inc()
}
