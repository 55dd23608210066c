package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// DefaultMaxAttempts bounds the number of short codes tried per ShortenURL call.
const DefaultMaxAttempts = 10

type urlRegistry interface {
	Get(shortCode string) (entity.URLEntry, error)
	List() []entity.URLEntry
	Insert(ctx context.Context, e entity.URLEntry) error
	Remove(ctx context.Context, shortCode string) error
	RecordVisit(ctx context.Context, shortCode string) (entity.URLEntry, error)
}

type codeGenerator interface {
	Generate() (string, error)
}

type URLUseCase struct {
	maxAttempts int
	registry    urlRegistry
	generator   codeGenerator
}

func New(maxAttempts int, registry urlRegistry, generator codeGenerator) *URLUseCase {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &URLUseCase{
		maxAttempts: maxAttempts,
		registry:    registry,
		generator:   generator,
	}
}

func (uc *URLUseCase) ShortenURL(ctx context.Context, longURL, note string) (*entity.URLEntry, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	for i := 0; i < uc.maxAttempts; i++ {
		shortCode, err := uc.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url := entity.URLEntry{
			ShortCode: shortCode,
			LongURL:   longURL,
			Note:      note,
		}

		if err := uc.registry.Insert(ctx, url); err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return &url, nil
	}

	return nil, fmt.Errorf("%s: %d attempts: %w", op, uc.maxAttempts, entity.ErrCodeSpaceExhausted)
}

func (uc *URLUseCase) GetURL(ctx context.Context, shortCode string) (*entity.URLEntry, error) {
	const op = "usecase.URLUseCase.GetURL"

	url, err := uc.registry.Get(shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	return &url, nil
}

func (uc *URLUseCase) ListURLs(ctx context.Context) ([]entity.URLEntry, error) {
	return uc.registry.List(), nil
}

func (uc *URLUseCase) DeleteURL(ctx context.Context, shortCode string) error {
	const op = "usecase.URLUseCase.DeleteURL"

	if err := uc.registry.Remove(ctx, shortCode); err != nil {
		return fmt.Errorf("%s: failed to delete url: %w", op, err)
	}

	return nil
}

// Redirect records a visit and returns the target of shortCode.
func (uc *URLUseCase) Redirect(ctx context.Context, shortCode string) (string, error) {
	const op = "usecase.URLUseCase.Redirect"

	url, err := uc.registry.RecordVisit(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	return url.LongURL, nil
}
