package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mautops/claims-gin/internal/auth"
	"github.com/mautops/claims-gin/internal/repository"
	"github.com/mautops/claims-gin/internal/service"
	"github.com/mautops/claims-gin/internal/storage"
)

// 最近报销单数量
const (
	defaultRecentCount = 5
	maxRecentCount     = 100
)

// ClaimController 报销单控制器
type ClaimController struct {
	claimService  service.ClaimService
	maxUploadSize int64
}

// NewClaimController 创建报销单控制器
func NewClaimController(claimService service.ClaimService, maxUploadSize int64) *ClaimController {
	if maxUploadSize <= 0 {
		maxUploadSize = storage.DefaultMaxSize
	}
	return &ClaimController{
		claimService:  claimService,
		maxUploadSize: maxUploadSize,
	}
}

// Submit 提交报销单
// @Summary      提交报销单
// @Description  JSON 或 multipart 表单提交,multipart 时附件字段为 upload
// @Tags         报销单
// @Accept       json,mpfd
// @Produce      json
// @Success      201  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /claims [post]
func (c *ClaimController) Submit(ctx *gin.Context) {
	var req service.SubmitClaimRequest
	var attachment *service.Attachment

	if strings.HasPrefix(ctx.ContentType(), "multipart/form-data") {
		if err := ctx.ShouldBind(&req); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
		var err error
		attachment, err = c.readAttachment(ctx)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid upload", err.Error())
			return
		}
	} else if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.claimService.Submit(serviceContext(ctx), &req, attachment)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	Created(ctx, result)
}

// readAttachment 读取 upload 字段,没有附件时返回 nil
// 多读一个字节,超限由存储层统一拒绝
func (c *ClaimController) readAttachment(ctx *gin.Context) (*service.Attachment, error) {
	header, err := ctx.FormFile("upload")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, c.maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return &service.Attachment{FileName: header.Filename, Data: data}, nil
}

// List 报销单列表
// @Summary      报销单列表
// @Tags         报销单
// @Param        filter   query string false "all|pending|approved|auto-approved|rejected|flagged"
// @Param        sort     query string false "newest|oldest|amount-high|amount-low|name"
// @Param        lecturer query string false "讲师姓名"
// @Success      200  {object}  ListResponse
// @Router       /claims [get]
func (c *ClaimController) List(ctx *gin.Context) {
	claims, err := c.claimService.List(repository.ListOptions{
		Filter:   ctx.Query("filter"),
		Sort:     ctx.Query("sort"),
		Lecturer: strings.TrimSpace(ctx.Query("lecturer")),
	})
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	List(ctx, claims, len(claims))
}

// Recent 最近提交的报销单
func (c *ClaimController) Recent(ctx *gin.Context) {
	count := defaultRecentCount
	if raw := ctx.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid count", err.Error())
			return
		}
		count = n
	}
	if count > maxRecentCount {
		count = maxRecentCount
	}

	claims := c.claimService.Recent(count)
	List(ctx, claims, len(claims))
}

// Get 获取报销单
// @Summary      获取报销单详情
// @Tags         报销单
// @Param        id path int true "报销单 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /claims/{id} [get]
func (c *ClaimController) Get(ctx *gin.Context) {
	id, ok := parseClaimID(ctx)
	if !ok {
		return
	}

	claim, err := c.claimService.Get(id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, claim)
}

// Track 根据追踪令牌查询
func (c *ClaimController) Track(ctx *gin.Context) {
	claim, err := c.claimService.GetByToken(ctx.Param("token"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, claim)
}

// History 状态历史
func (c *ClaimController) History(ctx *gin.Context) {
	id, ok := parseClaimID(ctx)
	if !ok {
		return
	}

	histories, err := c.claimService.History(id)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	List(ctx, histories, len(histories))
}

// Approve 审核通过
// @Summary      审核通过
// @Tags         审核
// @Param        id path int true "报销单 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /claims/{id}/approve [post]
func (c *ClaimController) Approve(ctx *gin.Context) {
	id, ok := parseClaimID(ctx)
	if !ok {
		return
	}

	var req service.ApproveClaimRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	claim, err := c.claimService.Approve(serviceContext(ctx), id, &req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, claim)
}

// Reject 审核拒绝
// @Summary      审核拒绝
// @Tags         审核
// @Param        id path int true "报销单 ID"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /claims/{id}/reject [post]
func (c *ClaimController) Reject(ctx *gin.Context) {
	id, ok := parseClaimID(ctx)
	if !ok {
		return
	}

	var req service.RejectClaimRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	claim, err := c.claimService.Reject(serviceContext(ctx), id, &req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, claim)
}

// UpdateStatus 直接变更状态
func (c *ClaimController) UpdateStatus(ctx *gin.Context) {
	id, ok := parseClaimID(ctx)
	if !ok {
		return
	}

	var req service.UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	claim, err := c.claimService.UpdateStatus(serviceContext(ctx), id, &req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, claim)
}

// BatchApprove 批量审核通过
func (c *ClaimController) BatchApprove(ctx *gin.Context) {
	var req service.BatchApproveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	results := c.claimService.BatchApprove(serviceContext(ctx), &req)
	Success(ctx, results)
}

// parseClaimID 解析路径中的报销单 ID
func parseClaimID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		Error(ctx, http.StatusBadRequest, "invalid claim ID", fmt.Sprintf("%q is not a positive integer", ctx.Param("id")))
		return 0, false
	}
	return id, true
}

// bindOptionalJSON 请求体可以为空
func bindOptionalJSON(ctx *gin.Context, obj interface{}) bool {
	if ctx.Request.ContentLength == 0 {
		return true
	}
	if err := ctx.ShouldBindJSON(obj); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return false
	}
	return true
}

// serviceContext 携带请求信息和审核人身份的 context
func serviceContext(ctx *gin.Context) context.Context {
	c := service.WithRequestInfo(ctx.Request.Context(), service.RequestInfo{
		RequestID: ctx.GetString(ContextKeyRequestID),
		IP:        ctx.ClientIP(),
		UserAgent: ctx.Request.UserAgent(),
	})
	if userID := ctx.GetString(auth.ContextKeyUserID); userID != "" {
		c = service.WithUserID(c, userID)
	}
	return c
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
