// Package fincrew provides a top-level convenience entry point for creating
// single worker agents with minimal boilerplate.
//
// Usage:
//
//	import "github.com/waritsan/fincrew"
//
//	a, err := fincrew.New(fincrew.WithAnthropic("claude-sonnet-4-20250514"),
//	    fincrew.WithRole("Financial Analyst"),
//	    fincrew.WithGoal("analyze the company"))
//	a, err := fincrew.New(fincrew.WithProvider(myProvider), fincrew.WithModel("custom"))
//
// The full orchestration (knowledge base, working memory, supervisor) lives in
// the advisor package; this entry point covers the single-agent case.
package fincrew

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/waritsan/fincrew/agent"
	"github.com/waritsan/fincrew/llm"
	"github.com/waritsan/fincrew/llm/factory"
	"github.com/waritsan/fincrew/tools"
)

// Option configures the agent created by [New].
type Option func(*options)

type options struct {
	name     string
	def      agent.Definition
	provider llm.Provider
	registry tools.Registry
	logger   *zap.Logger

	// Provider shortcut fields — used when provider is nil.
	providerName string
	baseURL      string
	apiKey       string
}

// WithProvider sets a pre-built LLM provider.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithAnthropic creates an Anthropic Claude provider using the given model.
// API key is read from ANTHROPIC_API_KEY environment variable.
func WithAnthropic(model string) Option {
	return func(o *options) {
		o.providerName = "anthropic"
		o.def.Model = model
		if o.apiKey == "" {
			o.apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
}

// WithDeepSeek creates a DeepSeek provider using the given model.
// API key is read from DEEPSEEK_API_KEY environment variable.
func WithDeepSeek(model string) Option {
	return func(o *options) {
		o.providerName = "deepseek"
		o.def.Model = model
		if o.apiKey == "" {
			o.apiKey = os.Getenv("DEEPSEEK_API_KEY")
		}
	}
}

// WithOpenAI creates an OpenAI provider using the given model.
// API key is read from OPENAI_API_KEY environment variable.
func WithOpenAI(model string) Option {
	return func(o *options) {
		o.providerName = "openai"
		o.baseURL = "https://api.openai.com/v1"
		o.def.Model = model
		if o.apiKey == "" {
			o.apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// WithModel sets the model name. Overrides the model set by provider shortcuts.
func WithModel(model string) Option {
	return func(o *options) { o.def.Model = model }
}

// WithName sets the agent name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithRole sets the agent role (required).
func WithRole(role string) Option {
	return func(o *options) { o.def.Role = role }
}

// WithGoal sets the agent goal (required).
func WithGoal(goal string) Option {
	return func(o *options) { o.def.Goal = goal }
}

// WithBackstory sets the agent backstory.
func WithBackstory(backstory string) Option {
	return func(o *options) { o.def.Backstory = backstory }
}

// WithTools attaches a tool registry to the agent.
func WithTools(registry tools.Registry) Option {
	return func(o *options) { o.registry = registry }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithAPIKey overrides the API key for provider shortcuts (WithAnthropic, etc.).
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// New creates an [agent.Agent] with minimal configuration.
// At minimum, a provider (via [WithProvider], [WithAnthropic], [WithDeepSeek]
// or [WithOpenAI]), a role and a goal must be specified.
func New(opts ...Option) (*agent.Agent, error) {
	o := &options{
		name: "fincrew-agent",
	}
	for _, opt := range opts {
		opt(o)
	}

	p := o.provider
	if p == nil {
		if o.providerName == "" {
			return nil, fmt.Errorf("provider is required: use WithProvider, WithAnthropic, WithDeepSeek, or WithOpenAI")
		}
		if o.apiKey == "" {
			return nil, fmt.Errorf("API key is required for %s: set the environment variable or use WithAPIKey", o.providerName)
		}
		var err error
		p, err = factory.NewProviderFromConfig(o.providerName, factory.ProviderConfig{
			APIKey:  o.apiKey,
			BaseURL: o.baseURL,
			Model:   o.def.Model,
		}, o.logger)
		if err != nil {
			return nil, fmt.Errorf("create %s provider: %w", o.providerName, err)
		}
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	return agent.New(o.name, o.def, p, o.registry, agent.Options{}, o.logger)
}
