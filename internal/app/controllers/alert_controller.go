package controllers

import (
	"strconv"
	"strings"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/domain/services"
	"fieldtrack-http-service/internal/domain/services/container"
	"fieldtrack-http-service/internal/error/code"
	"fieldtrack-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceAlertController 定义紧急警报控制器接口
type InterfaceAlertController interface {
	CreateAlert()
	GetAlerts()
	GetAlert()
	AcknowledgeAlert()
	ResolveAlert()
	GetAlertNotifications()
	GetViolations()
	GetViolation()
}

// AlertController 处理紧急警报与越界记录相关的请求
type AlertController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewAlertController 创建一个新的紧急警报控制器
func NewAlertController(ctx *gin.Context, container *container.ServiceContainer) *AlertController {
	return &AlertController{
		Ctx:       ctx,
		Container: container,
	}
}

// AlertCreateRequest 表示创建警报请求
type AlertCreateRequest struct {
	Type        string   `json:"type" example:"panic"` // panic, medical, security, fire, general
	Priority    string   `json:"priority" example:"high"`
	AgentID     uint     `json:"agent_id" example:"3"` // 管理端可代报
	Latitude    *float64 `json:"latitude,omitempty" example:"31.2304"`
	Longitude   *float64 `json:"longitude,omitempty" example:"121.4737"`
	Description string   `json:"description" example:"南门发现可疑人员"`
}

// AlertResolveRequest 表示关闭警报请求
type AlertResolveRequest struct {
	FalseAlarm bool   `json:"false_alarm" example:"false"`
	Resolution string `json:"resolution" example:"已到场处置完毕"`
}

// HandleAlertFunc 返回一个处理警报请求的Gin处理函数
func HandleAlertFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewAlertController(ctx, container)

		switch method {
		case "createAlert":
			controller.CreateAlert()
		case "getAlerts":
			controller.GetAlerts()
		case "getAlert":
			controller.GetAlert()
		case "acknowledgeAlert":
			controller.AcknowledgeAlert()
		case "resolveAlert":
			controller.ResolveAlert()
		case "getAlertNotifications":
			controller.GetAlertNotifications()
		case "getViolations":
			controller.GetViolations()
		case "getViolation":
			controller.GetViolation()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// alertStateCode 将升级状态机的错误映射到错误码
func alertStateCode(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "不存在"):
		return code.ErrAlertNotFound
	case strings.Contains(msg, "已关闭"):
		return code.ErrAlertClosed
	default:
		return code.ErrAlertStateInvalid
	}
}

// 1. CreateAlert 处理创建紧急警报的请求
// @Summary      创建紧急警报
// @Description  创建警报并立即向第一层级接收方扇出通知，同时登记后续升级调度
// @Tags         Alert
// @Accept       json
// @Produce      json
// @Param        request body AlertCreateRequest true "警报参数"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /alerts [post]
// @Security     BearerAuth
func (c *AlertController) CreateAlert() {
	var req AlertCreateRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	userID, role := currentUser(c.Ctx)
	agentID := userID
	if req.AgentID != 0 && (role == string(models.RoleAdmin) || role == string(models.RoleSupervisor)) {
		agentID = req.AgentID
	}

	if req.Type == "" {
		req.Type = string(models.AlertTypeGeneral)
	}
	if req.Priority == "" {
		req.Priority = string(models.PriorityHigh)
	}
	if req.Latitude != nil && req.Longitude != nil {
		if err := services.ValidateCoordinates(*req.Latitude, *req.Longitude, 0); err != nil {
			response.FailWithMessage(c.Ctx, code.ErrLocationInvalid, err.Error(), nil)
			return
		}
	}

	alert := &models.EmergencyAlert{
		Type:        models.AlertType(req.Type),
		Priority:    models.AlertPriority(req.Priority),
		AgentID:     agentID,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Description: req.Description,
	}

	escalationService := c.Container.GetService("escalation").(services.InterfaceEscalationService)
	if err := escalationService.CreateAlert(alert); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "创建警报失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"uuid":             alert.UUID,
		"type":             alert.Type,
		"priority":         alert.Priority,
		"agent_id":         alert.AgentID,
		"status":           alert.Status,
		"escalation_level": alert.EscalationLevel,
		"created_at":       alert.CreatedAt,
	})
}

// 2. GetAlerts 处理查询警报列表的请求
// @Summary      警报列表
// @Description  按状态过滤分页查询警报
// @Tags         Alert
// @Produce      json
// @Param        status query string false "警报状态：ACTIVE/ACKNOWLEDGED/RESOLVED/FALSE_ALARM"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页条数"
// @Success      200  {object}  map[string]interface{}
// @Router       /alerts [get]
// @Security     BearerAuth
func (c *AlertController) GetAlerts() {
	status := c.Ctx.Query("status")
	page, _ := strconv.Atoi(c.Ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.Ctx.DefaultQuery("page_size", "20"))

	escalationService := c.Container.GetService("escalation").(services.InterfaceEscalationService)
	alerts, total, err := escalationService.GetAlerts(status, page, pageSize)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "查询警报失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"alerts":    alerts,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// 3. GetAlert 处理获取警报详情的请求
// @Summary      警报详情
// @Tags         Alert
// @Produce      json
// @Param        uuid path string true "警报UUID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /alerts/{uuid} [get]
// @Security     BearerAuth
func (c *AlertController) GetAlert() {
	alertUUID := c.Ctx.Param("uuid")

	escalationService := c.Container.GetService("escalation").(services.InterfaceEscalationService)
	alert, err := escalationService.GetAlertByUUID(alertUUID)
	if err != nil {
		response.Fail(c.Ctx, code.ErrAlertNotFound, nil)
		return
	}

	response.Success(c.Ctx, alert)
}

// 4. AcknowledgeAlert 处理确认警报的请求
// @Summary      确认警报
// @Description  有人接手处置：ACTIVE转为ACKNOWLEDGED并取消后续升级，重复确认或对终态操作将被拒绝
// @Tags         Alert
// @Produce      json
// @Param        uuid path string true "警报UUID"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /alerts/{uuid}/acknowledge [post]
// @Security     BearerAuth
func (c *AlertController) AcknowledgeAlert() {
	alertUUID := c.Ctx.Param("uuid")
	userID, _ := currentUser(c.Ctx)

	escalationService := c.Container.GetService("escalation").(services.InterfaceEscalationService)
	alert, err := escalationService.Acknowledge(alertUUID, userID)
	if err != nil {
		response.FailWithMessage(c.Ctx, alertStateCode(err), err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"uuid":            alert.UUID,
		"status":          alert.Status,
		"acknowledged_by": alert.AcknowledgedBy,
		"acknowledged_at": alert.AcknowledgedAt,
	})
}

// 5. ResolveAlert 处理关闭警报的请求
// @Summary      关闭警报
// @Description  将警报置为RESOLVED或FALSE_ALARM终态，终态的警报不再接受任何变更
// @Tags         Alert
// @Accept       json
// @Produce      json
// @Param        uuid path string true "警报UUID"
// @Param        request body AlertResolveRequest true "关闭参数"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /alerts/{uuid}/resolve [post]
// @Security     BearerAuth
func (c *AlertController) ResolveAlert() {
	alertUUID := c.Ctx.Param("uuid")
	userID, _ := currentUser(c.Ctx)

	var req AlertResolveRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	escalationService := c.Container.GetService("escalation").(services.InterfaceEscalationService)
	alert, err := escalationService.Resolve(alertUUID, userID, req.FalseAlarm, req.Resolution)
	if err != nil {
		response.FailWithMessage(c.Ctx, alertStateCode(err), err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"uuid":        alert.UUID,
		"status":      alert.Status,
		"resolved_by": alert.ResolvedBy,
		"resolved_at": alert.ResolvedAt,
		"resolution":  alert.Resolution,
	})
}

// 6. GetAlertNotifications 处理获取警报投递记录的请求
// @Summary      警报通知投递记录
// @Description  获取某警报全部通知投递记录，含各通道的成败
// @Tags         Alert
// @Produce      json
// @Param        uuid path string true "警报UUID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /alerts/{uuid}/notifications [get]
// @Security     BearerAuth
func (c *AlertController) GetAlertNotifications() {
	alertUUID := c.Ctx.Param("uuid")

	escalationService := c.Container.GetService("escalation").(services.InterfaceEscalationService)
	alert, err := escalationService.GetAlertByUUID(alertUUID)
	if err != nil {
		response.Fail(c.Ctx, code.ErrAlertNotFound, nil)
		return
	}

	notificationService := c.Container.GetService("notification").(services.InterfaceNotificationService)
	notifications, err := notificationService.GetNotificationsByAlert(alert.ID)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "查询投递记录失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"uuid":          alert.UUID,
		"notifications": notifications,
		"total":         len(notifications),
	})
}

// 7. GetViolations 处理查询越界记录的请求
// @Summary      越界记录列表
// @Description  分页查询越界记录，可按人员过滤、只看未关闭的
// @Tags         Violation
// @Produce      json
// @Param        agent_id query int false "人员ID"
// @Param        open query bool false "只看未关闭的"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页条数"
// @Success      200  {object}  map[string]interface{}
// @Router       /violations [get]
// @Security     BearerAuth
func (c *AlertController) GetViolations() {
	var agentID *uint
	if s := c.Ctx.Query("agent_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			response.FailWithMessage(c.Ctx, code.ErrBind, "无效的人员ID", nil)
			return
		}
		v := uint(id)
		agentID = &v
	}
	onlyOpen := c.Ctx.Query("open") == "true"
	page, _ := strconv.Atoi(c.Ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.Ctx.DefaultQuery("page_size", "20"))

	violationService := c.Container.GetService("violation").(services.InterfaceViolationService)
	violations, total, err := violationService.GetViolations(agentID, onlyOpen, page, pageSize)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "查询越界记录失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"violations": violations,
		"total":      total,
		"page":       page,
		"page_size":  pageSize,
	})
}

// 8. GetViolation 处理获取单条越界记录的请求
// @Summary      越界记录详情
// @Tags         Violation
// @Produce      json
// @Param        id path int true "记录ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /violations/{id} [get]
// @Security     BearerAuth
func (c *AlertController) GetViolation() {
	id, err := strconv.ParseUint(c.Ctx.Param("id"), 10, 32)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的记录ID", nil)
		return
	}

	violationService := c.Container.GetService("violation").(services.InterfaceViolationService)
	violation, err := violationService.GetViolationByID(uint(id))
	if err != nil {
		response.Fail(c.Ctx, code.ErrViolationNotFound, nil)
		return
	}

	response.Success(c.Ctx, violation)
}
