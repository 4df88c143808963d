package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/api"
	"github.com/BaSui01/researchflow/suggest"
	"github.com/BaSui01/researchflow/topic"
	"github.com/BaSui01/researchflow/types"
)

// =============================================================================
// 🗂️ 主题接口 Handler
// =============================================================================

// TopicHandler 列出主题并提供独立的分类接口
type TopicHandler struct {
	registry *topic.Registry
	router   Classifier
	logger   *zap.Logger
}

// NewTopicHandler 创建主题处理器
func NewTopicHandler(registry *topic.Registry, router Classifier, logger *zap.Logger) *TopicHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicHandler{registry: registry, router: router, logger: logger}
}

// HandleList 按注册顺序列出主题
// @Summary 主题列表
// @Tags 主题
// @Produce json
// @Success 200 {array} api.TopicInfo "主题列表"
// @Router /api/v1/topics [get]
func (h *TopicHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	configs := h.registry.Configs()
	out := make([]api.TopicInfo, 0, len(configs))
	for _, c := range configs {
		out = append(out, api.TopicInfo{
			Key:         c.Key,
			Label:       c.Label,
			Description: c.Description,
			Domain:      string(c.Domain),
		})
	}
	WriteSuccessFor(w, r, out)
}

// HandleClassify 对查询做主题分类，不运行流水线
// @Summary 主题分类
// @Tags 主题
// @Accept json
// @Produce json
// @Param request body api.ClassifyRequest true "分类请求"
// @Success 200 {object} api.ClassifyResponse "分类结果"
// @Failure 400 {object} Response "无效请求"
// @Router /api/v1/topics/classify [post]
func (h *TopicHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.ClassifyRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "query is required"), h.logger)
		return
	}

	var resp api.ClassifyResponse
	if h.router != nil {
		resp.TopicKey, resp.TopicLabel = h.router.Classify(r.Context(), query)
	} else {
		first := h.registry.First()
		resp.TopicKey, resp.TopicLabel = first.Key, first.Label
	}
	WriteSuccessFor(w, r, resp)
}

// =============================================================================
// 💡 示例问题 Handler
// =============================================================================

// SuggestionHandler 返回示例研究问题
type SuggestionHandler struct {
	generator *suggest.Generator
	logger    *zap.Logger
}

// NewSuggestionHandler 创建示例问题处理器
func NewSuggestionHandler(generator *suggest.Generator, logger *zap.Logger) *SuggestionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionHandler{generator: generator, logger: logger}
}

// HandleSuggestions 返回 n 个示例问题（默认 5）
// @Summary 示例问题
// @Tags 示例
// @Produce json
// @Param n query int false "数量"
// @Success 200 {object} api.SuggestionsResponse "示例问题"
// @Router /api/v1/suggestions [get]
func (h *SuggestionHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	n := suggest.DefaultCount
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			WriteError(w, types.NewError(types.ErrInvalidRequest, "n must be a positive integer"), h.logger)
			return
		}
		n = v
	}
	WriteSuccessFor(w, r, api.SuggestionsResponse{Suggestions: h.generator.Generate(r.Context(), n)})
}
