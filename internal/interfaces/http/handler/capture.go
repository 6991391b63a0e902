package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appcapture "github.com/chatvault/backend/internal/application/capture"
	domaincapture "github.com/chatvault/backend/internal/domain/capture"
	"github.com/chatvault/backend/internal/infrastructure/bridge"
	"github.com/chatvault/backend/internal/interfaces/http/response"
)

// CaptureHandler 捕获相关接口
type CaptureHandler struct {
	store  *appcapture.Store
	syncer *appcapture.Synchronizer
	relay  *bridge.Relay
}

// NewCaptureHandler 创建捕获处理器
func NewCaptureHandler(store *appcapture.Store, syncer *appcapture.Synchronizer, relay *bridge.Relay) *CaptureHandler {
	return &CaptureHandler{store: store, syncer: syncer, relay: relay}
}

// ConversationSummaryDTO 会话摘要 DTO（列表视图，不含消息体）
type ConversationSummaryDTO struct {
	ID             string `json:"id"`
	Platform       string `json:"platform"`
	Title          string `json:"title,omitempty"`
	OrgID          string `json:"orgId,omitempty"`
	CreatedAt      int64  `json:"createdAt,omitempty"`
	UpdatedAt      int64  `json:"updatedAt,omitempty"`
	MessageCount   int    `json:"messageCount"`
	HasFullHistory bool   `json:"hasFullHistory"`
	LastSeenAt     int64  `json:"lastSeenAt"`
}

// toSummaryDTO 领域模型转摘要 DTO
func toSummaryDTO(conv *domaincapture.Conversation) *ConversationSummaryDTO {
	return &ConversationSummaryDTO{
		ID:             conv.ID,
		Platform:       string(conv.Platform),
		Title:          conv.Title,
		OrgID:          conv.OrgID,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
		MessageCount:   len(conv.Messages),
		HasFullHistory: conv.HasFullHistory,
		LastSeenAt:     conv.LastSeenAt,
	}
}

// parsePlatform 校验平台参数
func parsePlatform(raw string) (domaincapture.Platform, bool) {
	switch domaincapture.Platform(raw) {
	case domaincapture.PlatformChatGPT:
		return domaincapture.PlatformChatGPT, true
	case domaincapture.PlatformClaude:
		return domaincapture.PlatformClaude, true
	}
	return "", false
}

// ListConversations 获取会话列表
// @Summary 获取已捕获的会话列表
// @Tags 会话
// @Produce json
// @Param platform query string false "平台过滤（chatgpt / claude）"
// @Success 200 {object} response.Response
// @Router /conversations [get]
func (h *CaptureHandler) ListConversations(c *gin.Context) {
	var convs []*domaincapture.Conversation
	if raw := c.Query("platform"); raw != "" {
		platform, ok := parsePlatform(raw)
		if !ok {
			response.Error(c, http.StatusBadRequest, response.CodeInvalidPlatform, "unknown platform")
			return
		}
		convs = h.store.GetByPlatform(platform)
	} else {
		convs = h.store.GetAll()
	}

	dtos := make([]*ConversationSummaryDTO, 0, len(convs))
	for _, conv := range convs {
		dtos = append(dtos, toSummaryDTO(conv))
	}
	response.Success(c, dtos)
}

// GetConversation 获取会话详情（含消息）
// @Summary 获取单个会话的归并结果
// @Tags 会话
// @Produce json
// @Param platform path string true "平台"
// @Param id path string true "会话 ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /conversations/{platform}/{id} [get]
func (h *CaptureHandler) GetConversation(c *gin.Context) {
	platform, ok := parsePlatform(c.Param("platform"))
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidPlatform, "unknown platform")
		return
	}

	conv, ok := h.store.Get(domaincapture.ConversationKey{Platform: platform, ID: c.Param("id")})
	if !ok {
		response.Error(c, http.StatusNotFound, response.CodeConversationMissed, "conversation not found")
		return
	}
	response.Success(c, conv)
}

// Stats 获取捕获统计
// @Summary 获取捕获统计
// @Tags 会话
// @Produce json
// @Success 200 {object} response.Response
// @Router /stats [get]
func (h *CaptureHandler) Stats(c *gin.Context) {
	response.Success(c, h.store.ComputeStats())
}

// ActiveMessages 获取活跃会话的消息
// @Summary 获取当前打开会话的归并消息
// @Tags 活跃会话
// @Produce json
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /active/messages [get]
func (h *CaptureHandler) ActiveMessages(c *gin.Context) {
	conv, err := h.syncer.ActiveConversation()
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeNoActiveConv, "no active conversation")
		return
	}
	response.Success(c, conv)
}

// SetActiveURLRequest 导航信号请求
type SetActiveURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// SetActiveURL 上报当前页面 URL
// @Summary 上报页面导航（WebSocket 之外的回退通道）
// @Tags 活跃会话
// @Accept json
// @Produce json
// @Param request body SetActiveURLRequest true "当前页面 URL"
// @Success 200 {object} response.Response
// @Router /active/url [post]
func (h *CaptureHandler) SetActiveURL(c *gin.Context) {
	var req SetActiveURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParam, "url is required")
		return
	}

	h.syncer.ObserveNavigation(req.URL)
	response.Success(c, gin.H{"activeKey": h.syncer.ActiveKey()})
}

// Rescan 手动触发活跃会话补扫
// @Summary 主动拉取活跃会话的完整历史
// @Tags 活跃会话
// @Produce json
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /rescan [post]
func (h *CaptureHandler) Rescan(c *gin.Context) {
	key := h.syncer.ActiveKey()
	if key == nil {
		response.Error(c, http.StatusNotFound, response.CodeNoActiveConv, "no active conversation")
		return
	}

	if err := h.syncer.Rescan(c.Request.Context(), *key); err != nil {
		if errors.Is(err, appcapture.ErrAuthUnavailable) {
			response.Error(c, http.StatusConflict, response.CodeAuthUnavailable, "auth context not captured yet")
			return
		}
		response.ErrorWithDetail(c, http.StatusBadGateway, response.CodeRescanFailed, "rescan failed", err.Error())
		return
	}

	conv, _ := h.store.Get(*key)
	response.Success(c, toSummaryDTO(conv))
}

// Ingest HTTP 回退投递
// WebSocket 不可用的环境（如受限扩展上下文）可逐条 POST 信封
// @Summary 投递单个捕获信封
// @Tags 捕获
// @Accept json
// @Produce json
// @Param envelope body bridge.Envelope true "捕获信封"
// @Success 200 {object} response.Response
// @Router /capture/envelope [post]
func (h *CaptureHandler) Ingest(c *gin.Context) {
	var env bridge.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParam, "malformed envelope")
		return
	}

	if env.Source != h.relay.Source() {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParam, "unknown envelope source")
		return
	}

	h.relay.Publish(&env)
	response.Success(c, gin.H{"pending": h.relay.PendingCount()})
}
