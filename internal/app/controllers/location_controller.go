package controllers

import (
	"strconv"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/domain/services"
	"fieldtrack-http-service/internal/domain/services/container"
	"fieldtrack-http-service/internal/error/code"
	"fieldtrack-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceLocationController 定义位置追踪控制器接口
type InterfaceLocationController interface {
	IngestLocation()
	GetCurrentPositions()
	GetAgentHistory()
	GetTrackingStats()
	ValidatePoint()
	CleanupHistory()
}

// LocationController 处理位置追踪相关的请求
type LocationController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewLocationController 创建一个新的位置追踪控制器
func NewLocationController(ctx *gin.Context, container *container.ServiceContainer) *LocationController {
	return &LocationController{
		Ctx:       ctx,
		Container: container,
	}
}

// LocationIngestRequest 表示位置上报请求。
// 坐标用指针以区分"未提供"和合法的零值（赤道/本初子午线）。
type LocationIngestRequest struct {
	AgentID    uint       `json:"agent_id" example:"3"` // 管理员可代报，普通人员以令牌为准
	Latitude   *float64   `json:"latitude" binding:"required" example:"31.2304"`
	Longitude  *float64   `json:"longitude" binding:"required" example:"121.4737"`
	Accuracy   float64    `json:"accuracy" example:"8.5"`
	Speed      *float64   `json:"speed,omitempty" example:"4.2"`
	Heading    *float64   `json:"heading,omitempty" example:"180"`
	Battery    *int       `json:"battery,omitempty" example:"76"`
	Status     string     `json:"status,omitempty" example:"active"`
	ZoneID     *uint      `json:"zone_id,omitempty" example:"1"`
	CapturedAt *time.Time `json:"captured_at,omitempty" example:"2023-07-01T08:30:00Z"`
}

// PointValidateRequest 表示围栏试算请求，不产生任何记录
type PointValidateRequest struct {
	AgentID   uint     `json:"agent_id" example:"3"`
	Latitude  *float64 `json:"latitude" binding:"required" example:"31.2304"`
	Longitude *float64 `json:"longitude" binding:"required" example:"121.4737"`
	ZoneID    *uint    `json:"zone_id,omitempty" example:"1"`
}

// HandleLocationFunc 返回一个处理位置追踪请求的Gin处理函数
func HandleLocationFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewLocationController(ctx, container)

		switch method {
		case "ingestLocation":
			controller.IngestLocation()
		case "getCurrentPositions":
			controller.GetCurrentPositions()
		case "getAgentHistory":
			controller.GetAgentHistory()
		case "getTrackingStats":
			controller.GetTrackingStats()
		case "validatePoint":
			controller.ValidatePoint()
		case "cleanupHistory":
			controller.CleanupHistory()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// currentUser 从上下文中取出认证后的用户ID与角色
func currentUser(ctx *gin.Context) (uint, string) {
	var userID uint
	if v, exists := ctx.Get("userID"); exists {
		switch id := v.(type) {
		case uint:
			userID = id
		case float64:
			// JWT claims中的数字默认解析为float64
			userID = uint(id)
		}
	}
	role := ""
	if v, exists := ctx.Get("role"); exists {
		if r, ok := v.(string); ok {
			role = r
		}
	}
	return userID, role
}

// 1. IngestLocation 处理位置上报请求
// @Summary      位置上报
// @Description  接收GPS采样：写入历史轨迹、覆盖当前位置缓存，并同步执行围栏评估
// @Tags         Location
// @Accept       json
// @Produce      json
// @Param        request body LocationIngestRequest true "位置上报参数"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /locations [post]
// @Security     BearerAuth
func (c *LocationController) IngestLocation() {
	var req LocationIngestRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil || req.Latitude == nil || req.Longitude == nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	userID, role := currentUser(c.Ctx)

	// 普通人员只能上报自己的位置，管理端可代报
	agentID := userID
	if req.AgentID != 0 && (role == string(models.RoleAdmin) || role == string(models.RoleSupervisor)) {
		agentID = req.AgentID
	}

	sample := &models.LocationSample{
		AgentID:   agentID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
		Heading:   req.Heading,
		Battery:   req.Battery,
		Status:    models.AgentStatus(req.Status),
		ZoneID:    req.ZoneID,
	}
	if req.CapturedAt != nil {
		sample.CapturedAt = *req.CapturedAt
	} else {
		sample.CapturedAt = time.Now()
	}
	if sample.Status == "" {
		sample.Status = models.AgentStatusActive
	}

	locationService := c.Container.GetService("location").(services.InterfaceLocationService)
	degraded, err := locationService.IngestLocation(sample)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrLocationInvalid, err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"sample_id":   sample.ID,
		"agent_id":    sample.AgentID,
		"captured_at": sample.CapturedAt,
		"degraded":    degraded,
	})
}

// 2. GetCurrentPositions 处理获取全部当前位置的请求
// @Summary      当前位置总览
// @Description  从缓存读取所有在报人员的最新位置，超过有效期的视为离线不返回
// @Tags         Location
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  ErrorResponse
// @Router       /locations/current [get]
// @Security     BearerAuth
func (c *LocationController) GetCurrentPositions() {
	locationService := c.Container.GetService("location").(services.InterfaceLocationService)

	positions, err := locationService.GetCurrentPositions()
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "获取当前位置失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"positions": positions,
		"total":     len(positions),
	})
}

// 3. GetAgentHistory 处理获取人员历史轨迹的请求
// @Summary      历史轨迹查询
// @Description  按时间范围查询某人员的历史轨迹，按采样时间倒序
// @Tags         Location
// @Produce      json
// @Param        agent_id path int true "人员ID"
// @Param        start query string false "起始时间(RFC3339)"
// @Param        end query string false "结束时间(RFC3339)"
// @Param        limit query int false "返回条数上限"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /locations/history/{agent_id} [get]
// @Security     BearerAuth
func (c *LocationController) GetAgentHistory() {
	agentID, err := strconv.ParseUint(c.Ctx.Param("agent_id"), 10, 32)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的人员ID", nil)
		return
	}

	var start, end *time.Time
	if s := c.Ctx.Query("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			response.FailWithMessage(c.Ctx, code.ErrBind, "无效的起始时间格式", nil)
			return
		}
		start = &t
	}
	if s := c.Ctx.Query("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			response.FailWithMessage(c.Ctx, code.ErrBind, "无效的结束时间格式", nil)
			return
		}
		end = &t
	}
	limit, _ := strconv.Atoi(c.Ctx.DefaultQuery("limit", "0"))

	locationService := c.Container.GetService("location").(services.InterfaceLocationService)
	samples, err := locationService.GetAgentHistory(uint(agentID), start, end, limit)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "查询历史轨迹失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"agent_id": agentID,
		"samples":  samples,
		"total":    len(samples),
	})
}

// 4. GetTrackingStats 处理获取追踪统计的请求
// @Summary      追踪统计
// @Description  返回在报人数、覆盖率与平均精度等统计指标
// @Tags         Location
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  ErrorResponse
// @Router       /locations/stats [get]
// @Security     BearerAuth
func (c *LocationController) GetTrackingStats() {
	locationService := c.Container.GetService("location").(services.InterfaceLocationService)

	stats, err := locationService.GetTrackingStats()
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "获取统计失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, stats)
}

// 5. ValidatePoint 处理围栏试算请求
// @Summary      围栏试算
// @Description  对给定坐标做一次围栏评估，不落库、不产生越界记录与警报
// @Tags         Location
// @Accept       json
// @Produce      json
// @Param        request body PointValidateRequest true "试算参数"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /locations/validate [post]
// @Security     BearerAuth
func (c *LocationController) ValidatePoint() {
	var req PointValidateRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil || req.Latitude == nil || req.Longitude == nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	userID, role := currentUser(c.Ctx)
	agentID := userID
	if req.AgentID != 0 && (role == string(models.RoleAdmin) || role == string(models.RoleSupervisor)) {
		agentID = req.AgentID
	}

	if err := services.ValidateCoordinates(*req.Latitude, *req.Longitude, 0); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrLocationInvalid, err.Error(), nil)
		return
	}

	geofenceService := c.Container.GetService("geofence").(services.InterfaceGeofenceService)
	results, err := geofenceService.ValidatePoint(agentID, *req.Latitude, *req.Longitude, req.ZoneID)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrZoneNotFound, err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"agent_id": agentID,
		"results":  results,
	})
}

// 6. CleanupHistory 处理历史轨迹清理请求
// @Summary      历史轨迹清理
// @Description  删除保留期之外的历史轨迹采样，保留天数必须为正
// @Tags         Location
// @Produce      json
// @Param        days query int true "保留天数"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /locations/history [delete]
// @Security     BearerAuth
func (c *LocationController) CleanupHistory() {
	days, err := strconv.Atoi(c.Ctx.Query("days"))
	if err != nil || days <= 0 {
		response.FailWithMessage(c.Ctx, code.ErrRetentionInvalid, "保留天数必须为正整数", nil)
		return
	}

	locationService := c.Container.GetService("location").(services.InterfaceLocationService)
	deleted, err := locationService.CleanupHistory(days)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "清理失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"days_kept": days,
		"deleted":   deleted,
	})
}
