package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fjod/go_pos/pkg/logger"
	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/gateway"
	"github.com/fjod/go_pos/pos-service/internal/ledger"
)

type Prompter interface {
	Prompt(ctx context.Context, prompt string, products []gateway.PromptProduct) (string, error)
}

// Recommender asks the backend for restocking advice over the current
// catalog and store quantities. Failures are returned as is; the operator
// asks again.
type Recommender struct {
	prompter Prompter
	log      *slog.Logger
}

func NewRecommender(p Prompter, log *slog.Logger) *Recommender {
	if log == nil {
		log = logger.Nop()
	}
	return &Recommender{prompter: p, log: log}
}

func (r *Recommender) Recommend(ctx context.Context, prompt string, products []domain.Product, l *ledger.Ledger) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		var v domain.Validator
		v.Required("prompt", prompt)
		return "", v.Err()
	}

	entries := make([]gateway.PromptProduct, 0, len(products))
	for _, p := range products {
		entry := gateway.PromptProduct{
			ID:        p.ID,
			ModelName: p.ModelName,
			Brand:     p.Brand,
			Category:  p.Category,
			SalePrice: p.Price(),
		}
		if l != nil {
			entry.Inventory = l.Get(p.ID)
		}
		entries = append(entries, entry)
	}

	text, err := r.prompter.Prompt(ctx, prompt, entries)
	if err != nil {
		r.log.ErrorContext(ctx, "recommendation request failed", "error", err)
		return "", fmt.Errorf("failed to get recommendation: %w", err)
	}
	return text, nil
}
