package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/api"
	"github.com/BaSui01/researchflow/stream"
	"github.com/BaSui01/researchflow/topic"
	"github.com/BaSui01/researchflow/types"
	"github.com/BaSui01/researchflow/workflow"
)

// 未指定时使用的模型参数
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.1
	maxTemperature     = 2.0
	maxQueryLength     = 4000
)

// Classifier 把查询映射到主题，topic.Router 实现它。
type Classifier interface {
	Classify(ctx context.Context, query string) (key, label string)
}

// ResearchDeps 是 ResearchHandler 的依赖。
type ResearchDeps struct {
	Registry           *topic.Registry
	Router             Classifier
	Engines            map[string]workflow.Engine
	Executor           *stream.Executor
	DefaultModel       string
	DefaultTemperature *float64
}

// =============================================================================
// 🔬 研究接口 Handler
// =============================================================================

// ResearchHandler 处理同步、SSE 与 WebSocket 三种研究请求。
type ResearchHandler struct {
	registry    *topic.Registry
	router      Classifier
	engines     map[string]workflow.Engine
	executor    *stream.Executor
	model       string
	temperature float64
	logger      *zap.Logger
}

// NewResearchHandler 创建研究处理器
func NewResearchHandler(deps ResearchDeps, logger *zap.Logger) *ResearchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &ResearchHandler{
		registry:    deps.Registry,
		router:      deps.Router,
		engines:     deps.Engines,
		executor:    deps.Executor,
		model:       deps.DefaultModel,
		temperature: DefaultTemperature,
		logger:      logger.With(zap.String("component", "research_handler")),
	}
	if h.model == "" {
		h.model = DefaultModel
	}
	if deps.DefaultTemperature != nil {
		h.temperature = *deps.DefaultTemperature
	}
	if h.executor == nil {
		h.executor = stream.NewExecutor(stream.WithLogger(logger))
	}
	return h
}

// HandleChat 同步执行一次研究
// @Summary 研究问题
// @Description 选择主题并同步运行完整流水线
// @Tags 研究
// @Accept json
// @Produce json
// @Param request body api.ChatRequest true "研究请求"
// @Success 200 {object} api.ChatResponse "研究结果"
// @Failure 400 {object} Response "无效请求或未知主题"
// @Failure 409 {object} Response "主题引擎忙"
// @Router /api/v1/chat [post]
func (h *ResearchHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.ChatRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	p, apiErr := h.prepare(r.Context(), req)
	if apiErr != nil {
		WriteError(w, apiErr, h.logger)
		return
	}
	if p.Engine == nil {
		WriteError(w, types.NewError(types.ErrInternalError, "no engine configured for topic "+p.TopicKey), h.logger)
		return
	}

	start := time.Now()
	state, err := p.Engine.Run(r.Context(), p.Query, workflow.RunOptions{
		Model:       p.Model,
		Temperature: p.Temperature,
	})
	if err != nil {
		WriteAnyError(w, err, h.logger)
		return
	}

	h.logger.Info("research completed",
		zap.String("topic", p.TopicKey),
		zap.String("model", p.Model),
		zap.String("analysis", string(state.Analysis.Status)),
		zap.Duration("duration", time.Since(start)),
	)
	WriteSuccessFor(w, r, api.ChatResponse{
		Reply:     workflow.FormatReply(state),
		TopicUsed: p.TopicLabel,
		TopicKey:  p.TopicKey,
		State:     state,
	})
}

// HandleStream 以 SSE 推送研究进度
// @Summary 流式研究
// @Description 以 Server-Sent Events 推送 topic、log、final 事件，最后发送 [DONE]
// @Tags 研究
// @Produce text/event-stream
// @Param query query string true "研究问题"
// @Param topic query string false "显式主题 key"
// @Param model query string false "模型名"
// @Param temperature query number false "采样温度"
// @Success 200 {string} string "SSE 流"
// @Failure 400 {object} Response "无效请求或未知主题"
// @Router /api/v1/chat/stream [get]
func (h *ResearchHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	req, apiErr := chatRequestFromQuery(r)
	if apiErr != nil {
		WriteError(w, apiErr, h.logger)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, types.NewError(types.ErrInternalError, "streaming not supported"), h.logger)
		return
	}

	// 主题校验必须在启动后台运行之前完成
	p, apiErr := h.prepare(r.Context(), req)
	if apiErr != nil {
		WriteError(w, apiErr, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // 禁用 nginx 缓冲
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	q := h.executor.Start(r.Context(), p)
	for {
		ev, ok := q.Next(r.Context())
		if !ok {
			// 客户端断开；后台运行继续直到结束
			h.logger.Debug("stream consumer went away", zap.String("topic", p.TopicKey))
			return
		}
		payload, err := ev.Wire()
		if err != nil {
			h.logger.Error("failed to encode event", zap.Error(err))
			continue
		}
		if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
			return
		}
		flusher.Flush()
		if ev.IsDone() {
			return
		}
	}
}

// HandleWebSocket 是 HandleStream 的 WebSocket 版本：客户端先发送一个
// JSON 请求，服务端逐条发送事件，最后发送 [DONE] 并正常关闭。
// @Summary WebSocket 研究
// @Tags 研究
// @Router /api/v1/chat/ws [get]
func (h *ResearchHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	_, data, err := conn.Read(readCtx)
	cancel()
	if err != nil {
		h.logger.Debug("websocket read failed", zap.Error(err))
		return
	}

	var req api.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		conn.Close(websocket.StatusInvalidFramePayloadData, "invalid JSON request")
		return
	}
	p, apiErr := h.prepare(ctx, req)
	if apiErr != nil {
		// close reason 最长 123 字节，完整错误作为消息发送
		if body, err := json.Marshal(Response{Success: false, Error: &ErrorInfo{
			Code:    string(apiErr.Code),
			Message: apiErr.Message,
		}, Timestamp: time.Now()}); err == nil {
			_ = conn.Write(ctx, websocket.MessageText, body)
		}
		conn.Close(websocket.StatusPolicyViolation, string(apiErr.Code))
		return
	}

	q := h.executor.Start(ctx, p)
	for {
		ev, ok := q.Next(ctx)
		if !ok {
			return
		}
		payload, err := ev.Wire()
		if err != nil {
			h.logger.Error("failed to encode event", zap.Error(err))
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
		if ev.IsDone() {
			conn.Close(websocket.StatusNormalClosure, "done")
			return
		}
	}
}

// prepare 校验请求、解析主题并填充默认模型参数。
// 显式主题未知时返回 UNKNOWN_TOPIC，不会启动任何运行。
func (h *ResearchHandler) prepare(ctx context.Context, req api.ChatRequest) (stream.Request, *types.Error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return stream.Request{}, types.NewError(types.ErrInvalidRequest, "query is required")
	}
	if len(query) > maxQueryLength {
		return stream.Request{}, types.NewError(types.ErrInvalidRequest, "query is too long")
	}
	temperature := h.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	if temperature < 0 || temperature > maxTemperature {
		return stream.Request{}, types.NewError(types.ErrInvalidRequest, "temperature must be between 0 and 2")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.model
	}

	var key, label string
	if t := strings.TrimSpace(req.Topic); t != "" {
		cfg, err := h.registry.Resolve(t)
		if err != nil {
			if typed, ok := types.AsError(err); ok {
				return stream.Request{}, typed
			}
			return stream.Request{}, types.NewError(types.ErrInvalidRequest, err.Error())
		}
		key, label = cfg.Key, cfg.Label
	} else if h.router != nil {
		key, label = h.router.Classify(ctx, query)
	} else {
		first := h.registry.First()
		key, label = first.Key, first.Label
	}

	return stream.Request{
		Engine:      h.engines[key],
		TopicKey:    key,
		TopicLabel:  label,
		Query:       query,
		Model:       model,
		Temperature: temperature,
	}, nil
}

// chatRequestFromQuery 从 URL 参数构造请求；message 作为 query 的别名。
func chatRequestFromQuery(r *http.Request) (api.ChatRequest, *types.Error) {
	v := r.URL.Query()
	req := api.ChatRequest{
		Query: v.Get("query"),
		Topic: v.Get("topic"),
		Model: v.Get("model"),
	}
	if req.Query == "" {
		req.Query = v.Get("message")
	}
	if raw := v.Get("temperature"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, types.NewError(types.ErrInvalidRequest, "temperature must be a number").WithCause(err)
		}
		req.Temperature = &t
	}
	return req, nil
}
