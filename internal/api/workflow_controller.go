package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/claims-gin/internal/service"
	"github.com/mautops/claims-gin/internal/workflow"
)

// WorkflowController 审批规则控制器
type WorkflowController struct {
	claimService service.ClaimService
	engine       *workflow.Engine
}

// NewWorkflowController 创建审批规则控制器
func NewWorkflowController(claimService service.ClaimService, engine *workflow.Engine) *WorkflowController {
	return &WorkflowController{claimService: claimService, engine: engine}
}

// Evaluate 预估提交结果,不保存
// @Summary      规则预估
// @Tags         审批规则
// @Accept       json
// @Produce      json
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /workflow/evaluate [post]
func (c *WorkflowController) Evaluate(ctx *gin.Context) {
	var req service.SubmitClaimRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	outcome, err := c.claimService.Preview(&req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, outcome)
}

// Rules 规则列表,按执行顺序
func (c *WorkflowController) Rules(ctx *gin.Context) {
	Success(ctx, c.engine.Rules())
}
