package extractor

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Attempt records how one strategy fared on a file.
type Attempt struct {
	Strategy string
	Err      error
}

// Extractor orchestrates extraction over an ordered list of strategies,
// falling back to the next one when a strategy fails.
type Extractor struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewExtractor builds the strategy chain for a mode: "pattern", "scanner",
// or "auto" (scanner first, pattern as fallback).
func NewExtractor(mode string, logger *zap.Logger) (*Extractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var strategies []Strategy
	switch mode {
	case "auto", "":
		strategies = []Strategy{NewScannerExtractor(), NewPatternExtractor()}
	case "pattern":
		strategies = []Strategy{NewPatternExtractor()}
	case "scanner":
		strategies = []Strategy{NewScannerExtractor()}
	default:
		return nil, fmt.Errorf("unsupported extractor: %s", mode)
	}
	return NewChain(logger, strategies...), nil
}

// NewChain builds an Extractor from explicit strategies.
func NewChain(logger *zap.Logger, strategies ...Strategy) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{strategies: strategies, logger: logger}
}

// Extract runs the strategies in order and returns the first module
// produced, together with the attempts made.
func (e *Extractor) Extract(src []byte) (*Module, []Attempt, error) {
	var attempts []Attempt
	var errs []error
	for _, s := range e.strategies {
		m, err := s.Extract(src)
		attempts = append(attempts, Attempt{Strategy: s.Name(), Err: err})
		if err != nil {
			e.logger.Debug("extraction strategy failed", zap.String("strategy", s.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		m.Strategy = s.Name()
		return m, attempts, nil
	}
	if len(errs) == 0 {
		return nil, attempts, errors.New("no extraction strategy configured")
	}
	return nil, attempts, errors.Join(errs...)
}

// ExtractFromFile reads and extracts a single foundation module.
func (e *Extractor) ExtractFromFile(path string) (*Module, []Attempt, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	m, attempts, err := e.Extract(src)
	if err != nil {
		return nil, attempts, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	m.Path = path
	return m, attempts, nil
}
