// Package factory provides a centralized factory for creating LLM Provider
// instances by name. It imports all provider sub-packages and maps string
// names to their constructors, breaking the import cycle that would occur
// if this logic lived in the llm package directly.
package factory

import (
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/llm/providers"
	claude "github.com/BaSui01/researchflow/llm/providers/anthropic"
	"github.com/BaSui01/researchflow/llm/providers/deepseek"
	"github.com/BaSui01/researchflow/llm/providers/openai"
	"go.uber.org/zap"
)

// Provider family names.
const (
	FamilyOpenAI   = "openai"
	FamilyDeepSeek = "deepseek"
	FamilyClaude   = "claude"
)

// ProviderConfig is the generic configuration accepted by the factory function.
type ProviderConfig struct {
	APIKey  string         `json:"api_key" yaml:"api_key"`
	BaseURL string         `json:"base_url" yaml:"base_url"`
	Model   string         `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Extra   map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// NewProviderFromConfig creates a Provider instance based on the provider name
// and a generic ProviderConfig.
//
// Supported names: openai, anthropic, claude, deepseek.
func NewProviderFromConfig(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := providers.BaseProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}

	switch name {
	case "openai":
		oc := providers.OpenAIConfig{BaseProviderConfig: base}
		if v, ok := cfg.Extra["organization"].(string); ok {
			oc.Organization = v
		}
		return openai.NewOpenAIProvider(oc, logger), nil

	case "anthropic", "claude":
		cc := providers.ClaudeConfig{BaseProviderConfig: base}
		if v, ok := cfg.Extra["max_tokens"].(int); ok {
			cc.MaxTokens = v
		}
		return claude.NewClaudeProvider(cc, logger), nil

	case "deepseek":
		return deepseek.NewDeepSeekProvider(providers.DeepSeekConfig{BaseProviderConfig: base}, logger), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// FamilyForModel 按模型名子串选择后端族：包含 deepseek 走 DeepSeek，
// 包含 claude 走 Claude，其余一律 OpenAI。
func FamilyForModel(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "deepseek"):
		return FamilyDeepSeek
	case strings.Contains(m, "claude"):
		return FamilyClaude
	default:
		return FamilyOpenAI
	}
}

// NewProviderForModel builds a fresh provider for the family that serves model.
// The model name becomes the provider's default model.
func NewProviderForModel(model string, families map[string]ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	family := FamilyForModel(model)
	cfg := families[family]
	cfg.Model = model
	return NewProviderFromConfig(family, cfg, logger)
}

// SupportedProviders returns the list of built-in provider names.
func SupportedProviders() []string {
	return []string{"openai", "anthropic", "claude", "deepseek"}
}
