package main

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/api/handlers"
	"github.com/BaSui01/researchflow/config"
	"github.com/BaSui01/researchflow/gateway"
	"github.com/BaSui01/researchflow/internal/cache"
	"github.com/BaSui01/researchflow/internal/metrics"
	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/llm/factory"
	"github.com/BaSui01/researchflow/stream"
	"github.com/BaSui01/researchflow/suggest"
	"github.com/BaSui01/researchflow/topic"
	"github.com/BaSui01/researchflow/workflow"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// app 持有一次进程内装配好的全部组件，serve 与 ask 共用。
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	collector   *metrics.Collector
	cache       *cache.Manager // Cache.Backend=redis 时非 nil
	gateway     *gateway.Gateway
	searchName  string
	switchboard *workflow.Switchboard
	registry    *topic.Registry
	router      *topic.Router
	routerLLM   llm.Provider
	engines     map[string]workflow.Engine
	executor    *stream.Executor
	suggestions *suggest.Generator
}

// buildApp 按配置装配组件。collector 为 nil 时不记录指标。
func buildApp(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &app{cfg: cfg, logger: logger, collector: collector}

	// 1. 缓存后端
	searchStore, pageStore, suggestStore, err := a.initStores(ctx)
	if err != nil {
		return nil, err
	}

	// 2. 外部调用网关
	client, clientName, err := newSearchClient(cfg.Gateway)
	if err != nil {
		return nil, err
	}
	gwOpts := []gateway.Option{
		gateway.WithTimeout(cfg.Gateway.Timeout),
		gateway.WithSearchStore(searchStore),
		gateway.WithPageStore(pageStore),
		gateway.WithLogger(logger),
	}
	if collector != nil {
		gwOpts = append(gwOpts, gateway.WithRecorder(collector))
	}
	a.gateway = gateway.New(client, gwOpts...)
	a.searchName = clientName

	// 3. 模型切换
	sbOpts := []workflow.SwitchboardOption{
		workflow.WithRequestTimeout(cfg.LLM.Timeout),
		workflow.WithSwitchboardLogger(logger),
	}
	if collector != nil {
		sbOpts = append(sbOpts, workflow.WithMetricsRecorder(collector))
	}
	a.switchboard = workflow.NewSwitchboard(providerFamilies(cfg.LLM), sbOpts...)

	// 4. 主题与引擎
	deps := topic.Deps{
		Gateway:            a.gateway,
		Models:             a.switchboard,
		DefaultModel:       cfg.LLM.DefaultModel,
		DefaultTemperature: cfg.LLM.Temperature,
		SearchLimit:        cfg.Gateway.SearchLimit,
		Logger:             logger,
	}
	if collector != nil {
		deps.Recorder = collector
	}
	a.registry = topic.Default(deps)
	a.engines = a.registry.BuildEngines()

	// 5. 路由器：模型构建失败时路由退化为第一个主题
	routerOpts := []topic.RouterOption{
		topic.WithTimeout(cfg.Router.Timeout),
		topic.WithLogger(logger),
	}
	if collector != nil {
		routerOpts = append(routerOpts, topic.WithRecorder(collector))
	}
	a.routerLLM, err = a.switchboard.Build(cfg.Router.Model, 0)
	if err != nil {
		logger.Warn("router model unavailable, every query uses the fallback topic",
			zap.String("model", cfg.Router.Model), zap.Error(err))
		a.routerLLM = nil
	}
	a.router = topic.NewRouter(a.registry, a.routerLLM, routerOpts...)

	// 6. 流式执行器与示例问题
	execOpts := []stream.Option{stream.WithLogger(logger)}
	if collector != nil {
		execOpts = append(execOpts, stream.WithRecorder(collector))
	}
	a.executor = stream.NewExecutor(execOpts...)

	var suggestLLM llm.Provider
	if p, err := a.switchboard.Build(suggest.DefaultModel, suggest.Temperature); err == nil {
		suggestLLM = p
	}
	a.suggestions = suggest.NewGenerator(suggestLLM,
		suggest.WithStore(suggestStore),
		suggest.WithLogger(logger),
	)

	logger.Info("components initialized",
		zap.Int("topics", a.registry.Len()),
		zap.String("gateway", clientName),
		zap.String("cache", cfg.Cache.Backend),
		zap.String("default_model", cfg.LLM.DefaultModel),
	)
	return a, nil
}

// initStores 构建网关与示例问题使用的缓存
func (a *app) initStores(ctx context.Context) (cache.Store[[]gateway.Result], cache.Store[string], cache.Store[suggest.Entry], error) {
	switch a.cfg.Cache.Backend {
	case "redis":
		rc := cache.DefaultConfig()
		rc.Addr = a.cfg.Redis.Addr
		rc.Password = a.cfg.Redis.Password
		rc.DB = a.cfg.Redis.DB
		rc.PoolSize = a.cfg.Redis.PoolSize
		rc.MinIdleConns = a.cfg.Redis.MinIdleConns
		rc.TLSEnabled = a.cfg.Redis.TLSEnabled
		rc.DefaultTTL = a.cfg.Cache.TTL

		manager, err := cache.NewManager(ctx, rc, a.logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init redis cache: %w", err)
		}
		a.cache = manager
		prefix := a.cfg.Cache.KeyPrefix
		return cache.NewRedisStore[[]gateway.Result](manager, prefix+"search:"),
			cache.NewRedisStore[string](manager, prefix+"page:"),
			cache.NewRedisStore[suggest.Entry](manager, prefix+"suggest:"),
			nil
	default:
		n := a.cfg.Cache.MaxEntries
		return cache.NewMemoryStore[[]gateway.Result](n),
			cache.NewMemoryStore[string](n),
			cache.NewMemoryStore[suggest.Entry](suggest.MaxCount),
			nil
	}
}

// registerHealth 注册 /ready 使用的依赖检查与 /health 展示的组件信息。
// Redis 是必需依赖；路由模型不可用时分类退回第一个主题，只算降级。
func (a *app) registerHealth(h *handlers.HealthHandler) {
	if a.cache != nil {
		h.RegisterCheck(handlers.NewCheckFunc("redis", a.cache.Ping))
	}
	if a.routerLLM != nil {
		h.RegisterOptionalCheck(handlers.NewProviderHealthCheck(a.routerLLM))
	}
	h.SetInfo("topics", strconv.Itoa(a.registry.Len()))
	h.SetInfo("search_provider", a.searchName)
	h.SetInfo("cache_backend", a.cacheBackend())
	h.SetInfo("default_model", a.cfg.LLM.DefaultModel)
}

func (a *app) cacheBackend() string {
	if a.cache != nil {
		return "redis"
	}
	return "memory"
}

// researchHandler 构建研究接口处理器
func (a *app) researchHandler() *handlers.ResearchHandler {
	temperature := a.cfg.LLM.Temperature
	return handlers.NewResearchHandler(handlers.ResearchDeps{
		Registry:           a.registry,
		Router:             a.router,
		Engines:            a.engines,
		Executor:           a.executor,
		DefaultModel:       a.cfg.LLM.DefaultModel,
		DefaultTemperature: &temperature,
	}, a.logger)
}

// Close 释放外部连接
func (a *app) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}

// newSearchClient 选择搜索后端并返回其名称：firecrawl 缺少密钥时退回 direct
func newSearchClient(cfg config.GatewayConfig) (gateway.Client, string, error) {
	direct := gateway.NewDirectClient(gateway.DirectConfig{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
	})
	switch cfg.Provider {
	case "direct":
		return direct, "direct", nil
	case "firecrawl", "":
		if cfg.FirecrawlAPIKey == "" {
			return direct, "direct", nil
		}
		client, err := gateway.NewFirecrawlClient(gateway.FirecrawlConfig{
			APIKey:  cfg.FirecrawlAPIKey,
			BaseURL: cfg.FirecrawlBaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, "", err
		}
		return client, "firecrawl", nil
	default:
		return nil, "", fmt.Errorf("unknown gateway provider %q", cfg.Provider)
	}
}

// providerFamilies 把 LLM 凭据转换成 Switchboard 的家族配置
func providerFamilies(cfg config.LLMConfig) map[string]factory.ProviderConfig {
	conv := func(c config.ProviderCredentials) factory.ProviderConfig {
		return factory.ProviderConfig{APIKey: c.APIKey, BaseURL: c.BaseURL}
	}
	return map[string]factory.ProviderConfig{
		factory.FamilyOpenAI:   conv(cfg.OpenAI),
		factory.FamilyDeepSeek: conv(cfg.DeepSeek),
		factory.FamilyClaude:   conv(cfg.Claude),
	}
}
