package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Kushall-07/Ai-tower/internal/agent"
	"github.com/Kushall-07/Ai-tower/internal/config"
	"github.com/Kushall-07/Ai-tower/internal/dataset"
	"github.com/Kushall-07/Ai-tower/internal/llm"
	"github.com/Kushall-07/Ai-tower/internal/policy"
	"github.com/Kushall-07/Ai-tower/internal/risk"
	"github.com/Kushall-07/Ai-tower/internal/store"
)

// tower bundles the wired components commands operate on.
type tower struct {
	cfg      *config.Config
	store    *store.Store
	policy   *policy.Policy
	runner   *agent.Runner
	datasets *dataset.Service
}

func (t *tower) Close() {
	if t.store != nil {
		_ = t.store.Close()
	}
}

// buildTower loads configuration and wires the full gating stack.
func buildTower(ctx context.Context) (*tower, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	cfg.WarnIfDefaultKeys()

	policyPath, err := cfg.PolicyPath()
	if err != nil {
		return nil, fmt.Errorf("resolving policy path: %w", err)
	}
	pol, err := policy.Load(ctx, policyPath)
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}

	keywordsPath, err := cfg.KeywordsPath()
	if err != nil {
		return nil, fmt.Errorf("resolving keyword file path: %w", err)
	}
	var classifierOpts []risk.ClassifierOption
	if keywordsPath != "" {
		classifierOpts = append(classifierOpts, risk.WithKeywordFile(keywordsPath))
	}
	classifier, err := risk.NewClassifier(classifierOpts...)
	if err != nil {
		return nil, fmt.Errorf("building risk classifier: %w", err)
	}

	gate, err := policy.NewActionGate(ctx, pol.Actions)
	if err != nil {
		return nil, fmt.Errorf("building action gate: %w", err)
	}

	st, err := store.Open(cfg.TowerDBPath(), cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	generator := llm.NewSafeGenerator(buildProvider(cfg), cfg.LLMModel)
	runner := agent.NewRunner(classifier, generator, pol, gate, st)

	return &tower{
		cfg:      cfg,
		store:    st,
		policy:   pol,
		runner:   runner,
		datasets: dataset.NewService(cfg.DatasetDir),
	}, nil
}

// buildProvider selects the LLM backend from config. A missing API key for
// the openai provider yields nil, which puts generation in placeholder mode.
func buildProvider(cfg *config.Config) llm.Provider {
	switch cfg.LLMProvider {
	case "ollama":
		baseURL := cfg.LLMBaseURL
		if baseURL == config.DefaultLLMBaseURL {
			baseURL = "" // provider default, the configured URL is for openai
		}
		return llm.NewOllamaProvider(baseURL)
	default:
		if cfg.LLMAPIKey == "" {
			log.Warn().Msg("TOWER_LLM_API_KEY not set — agent runs will return placeholder responses")
			return nil
		}
		return llm.NewOpenAIProviderWithBaseURL(cfg.LLMAPIKey, cfg.LLMBaseURL)
	}
}
