// Package api 提供秒杀活动相关的HTTP API处理器
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/domain"
	"github.com/MorseWayne/flash_sale/internal/middleware"
	"github.com/MorseWayne/flash_sale/internal/resp"
	"github.com/MorseWayne/flash_sale/internal/service"
)

// FlashActivityHandler 秒杀活动API处理器
type FlashActivityHandler struct {
	activityService service.FlashActivityDomainService
	logger          *zap.Logger
}

// NewFlashActivityHandler 创建秒杀活动API处理器
func NewFlashActivityHandler(activityService service.FlashActivityDomainService, logger *zap.Logger) *FlashActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlashActivityHandler{
		activityService: activityService,
		logger:          logger,
	}
}

// PublishActivity 发布秒杀活动
// @Summary 发布秒杀活动
// @Tags 秒杀活动管理
// @Accept json
// @Produce json
// @Param request body domain.PublishFlashActivityRequest true "活动信息"
// @Success 200 {object} resp.Response[domain.FlashActivity] "成功"
// @Failure 400 {object} resp.Response[any] "请求参数错误"
// @Failure 401 {object} resp.Response[any] "未授权"
// @Router /api/v1/admin/flash-activities [post]
// @Security Bearer
func (h *FlashActivityHandler) PublishActivity(c *gin.Context) {
	var req domain.PublishFlashActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("参数绑定失败", zap.Error(err))
		h.badRequest(c, "请求参数格式错误")
		return
	}

	activity := domain.NewFlashActivity(req.Name, req.Desc, req.StartTime, req.EndTime)
	if err := h.activityService.PublishActivity(c.Request.Context(), h.operatorID(c), activity); err != nil {
		h.writeError(c, "发布秒杀活动失败", err)
		return
	}

	resp.OK(c.Writer, activity, h.getRequestID(c), "")
}

// ModifyActivity 修改秒杀活动，未提供的字段保持原值
// @Summary 修改秒杀活动
// @Tags 秒杀活动管理
// @Accept json
// @Produce json
// @Param id path int true "活动ID"
// @Param request body domain.ModifyFlashActivityRequest true "修改内容"
// @Success 200 {object} resp.Response[domain.FlashActivity] "成功"
// @Failure 400 {object} resp.Response[any] "请求参数错误"
// @Failure 404 {object} resp.Response[any] "活动不存在"
// @Router /api/v1/admin/flash-activities/{id} [put]
// @Security Bearer
func (h *FlashActivityHandler) ModifyActivity(c *gin.Context) {
	activityID, ok := h.parseActivityID(c)
	if !ok {
		return
	}

	var req domain.ModifyFlashActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("参数绑定失败", zap.Error(err))
		h.badRequest(c, "请求参数格式错误")
		return
	}

	activity, err := h.activityService.GetFlashActivity(c.Request.Context(), activityID)
	if err != nil {
		h.writeError(c, "获取秒杀活动失败", err)
		return
	}
	if activity == nil {
		h.notFound(c)
		return
	}
	if err := req.ApplyTo(activity); err != nil {
		h.badRequest(c, "无效的活动状态")
		return
	}

	if err := h.activityService.ModifyActivity(c.Request.Context(), h.operatorID(c), activity); err != nil {
		h.writeError(c, "修改秒杀活动失败", err)
		return
	}

	resp.OK(c.Writer, activity, h.getRequestID(c), "")
}

// OnlineActivity 上线秒杀活动
// @Summary 上线秒杀活动
// @Tags 秒杀活动管理
// @Produce json
// @Param id path int true "活动ID"
// @Success 200 {object} resp.Response[domain.FlashActivity] "成功"
// @Failure 404 {object} resp.Response[any] "活动不存在"
// @Router /api/v1/admin/flash-activities/{id}/online [post]
// @Security Bearer
func (h *FlashActivityHandler) OnlineActivity(c *gin.Context) {
	activityID, ok := h.parseActivityID(c)
	if !ok {
		return
	}
	if err := h.activityService.OnlineActivity(c.Request.Context(), h.operatorID(c), activityID); err != nil {
		h.writeError(c, "上线秒杀活动失败", err)
		return
	}
	h.writeActivity(c, activityID)
}

// OfflineActivity 下线秒杀活动
// @Summary 下线秒杀活动
// @Tags 秒杀活动管理
// @Produce json
// @Param id path int true "活动ID"
// @Success 200 {object} resp.Response[domain.FlashActivity] "成功"
// @Failure 404 {object} resp.Response[any] "活动不存在"
// @Failure 409 {object} resp.Response[any] "活动尚未上线"
// @Router /api/v1/admin/flash-activities/{id}/offline [post]
// @Security Bearer
func (h *FlashActivityHandler) OfflineActivity(c *gin.Context) {
	activityID, ok := h.parseActivityID(c)
	if !ok {
		return
	}
	if err := h.activityService.OfflineActivity(c.Request.Context(), h.operatorID(c), activityID); err != nil {
		h.writeError(c, "下线秒杀活动失败", err)
		return
	}
	h.writeActivity(c, activityID)
}

// ListActivities 分页查询秒杀活动
// @Summary 秒杀活动列表
// @Tags 秒杀活动
// @Produce json
// @Param keyword query string false "活动名称关键字"
// @Param status query string false "活动状态"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} resp.Response[domain.PageResult[domain.FlashActivity]] "成功"
// @Router /api/v1/flash-activities [get]
func (h *FlashActivityHandler) ListActivities(c *gin.Context) {
	cond := domain.DefaultPagesQueryCondition()
	if err := c.ShouldBindQuery(cond); err != nil {
		h.badRequest(c, "查询参数格式错误")
		return
	}
	if cond.Status != nil && !cond.Status.IsValid() {
		h.badRequest(c, "无效的活动状态")
		return
	}

	page, err := h.activityService.GetFlashActivities(c.Request.Context(), cond)
	if err != nil {
		h.writeError(c, "查询秒杀活动列表失败", err)
		return
	}
	resp.OK(c.Writer, page, h.getRequestID(c), "")
}

// GetActivity 获取秒杀活动详情
// @Summary 秒杀活动详情
// @Tags 秒杀活动
// @Produce json
// @Param id path int true "活动ID"
// @Success 200 {object} resp.Response[domain.FlashActivity] "成功"
// @Failure 404 {object} resp.Response[any] "活动不存在"
// @Router /api/v1/flash-activities/{id} [get]
func (h *FlashActivityHandler) GetActivity(c *gin.Context) {
	activityID, ok := h.parseActivityID(c)
	if !ok {
		return
	}
	h.writeActivity(c, activityID)
}

// GetOrderEligibility 查询活动当前是否允许下单
// @Summary 下单资格查询
// @Tags 秒杀活动
// @Produce json
// @Param id path int true "活动ID"
// @Success 200 {object} resp.Response[domain.OrderEligibilityResponse] "成功"
// @Failure 429 {object} resp.Response[any] "请求过于频繁"
// @Router /api/v1/flash-activities/{id}/order-eligibility [get]
func (h *FlashActivityHandler) GetOrderEligibility(c *gin.Context) {
	activityID, ok := h.parseActivityID(c)
	if !ok {
		return
	}
	allowed := h.activityService.IsAllowPlaceOrderOrNot(c.Request.Context(), activityID)
	resp.OK(c.Writer, &domain.OrderEligibilityResponse{ActivityID: activityID, Allowed: allowed}, h.getRequestID(c), "")
}

func (h *FlashActivityHandler) writeActivity(c *gin.Context, activityID int64) {
	activity, err := h.activityService.GetFlashActivity(c.Request.Context(), activityID)
	if err != nil {
		h.writeError(c, "获取秒杀活动失败", err)
		return
	}
	if activity == nil {
		h.notFound(c)
		return
	}
	resp.OK(c.Writer, activity, h.getRequestID(c), "")
}

// writeError 将领域错误映射为统一响应
func (h *FlashActivityHandler) writeError(c *gin.Context, msg string, err error) {
	reqID := h.getRequestID(c)
	switch {
	case errors.Is(err, domain.ErrInvalidParams):
		h.logger.Warn(msg, zap.String("request_id", reqID), zap.Error(err))
		h.badRequest(c, "请求参数错误")
	case errors.Is(err, domain.ErrActivityNotFound):
		h.logger.Warn(msg, zap.String("request_id", reqID), zap.Error(err))
		h.notFound(c)
	case errors.Is(err, domain.ErrActivityNotOnline):
		h.logger.Warn(msg, zap.String("request_id", reqID), zap.Error(err))
		resp.Error(c.Writer, http.StatusConflict, resp.CodeConflict, "活动尚未上线", reqID, "")
	default:
		h.logger.Error(msg, zap.String("request_id", reqID), zap.Error(err))
		if middleware.HandleTimeout(c.Writer, c.Request) {
			return
		}
		resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, "系统繁忙，请稍后重试", reqID, "")
	}
}

func (h *FlashActivityHandler) parseActivityID(c *gin.Context) (int64, bool) {
	activityID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || activityID <= 0 {
		h.badRequest(c, "无效的活动ID")
		return 0, false
	}
	return activityID, true
}

func (h *FlashActivityHandler) badRequest(c *gin.Context, msg string) {
	resp.Error(c.Writer, http.StatusBadRequest, resp.CodeInvalidParam, msg, h.getRequestID(c), "")
}

func (h *FlashActivityHandler) notFound(c *gin.Context) {
	resp.Error(c.Writer, http.StatusNotFound, resp.CodeNotFound, "秒杀活动不存在", h.getRequestID(c), "")
}

// operatorID 获取当前运营人员ID，未认证时返回 0
func (h *FlashActivityHandler) operatorID(c *gin.Context) int64 {
	if op := middleware.OperatorFromContext(c.Request.Context()); op != nil {
		return op.ID
	}
	return 0
}

func (h *FlashActivityHandler) getRequestID(c *gin.Context) string {
	return middleware.RequestIDFromContext(c.Request.Context())
}
