package controllers

import (
	"strconv"
	"time"

	"fieldtrack-http-service/internal/app/middleware"
	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/domain/services"
	"fieldtrack-http-service/internal/domain/services/container"
	"fieldtrack-http-service/internal/error/code"
	"fieldtrack-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceZoneController 定义围栏区域控制器接口
type InterfaceZoneController interface {
	GetZones()
	GetZone()
	CreateZone()
	UpdateZone()
	CreateShift()
	StartShift()
	EndShift()
	GetAgentShifts()
}

// ZoneController 处理围栏区域与排班相关的请求
type ZoneController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewZoneController 创建一个新的围栏区域控制器
func NewZoneController(ctx *gin.Context, container *container.ServiceContainer) *ZoneController {
	return &ZoneController{
		Ctx:       ctx,
		Container: container,
	}
}

// ZoneCreateRequest 表示创建围栏区域的请求
type ZoneCreateRequest struct {
	Name      string   `json:"name" binding:"required" example:"陆家嘴金融中心"`
	SiteCode  string   `json:"site_code" binding:"required" example:"SH-LJZ-001"`
	Latitude  *float64 `json:"latitude" binding:"required" example:"31.2397"`
	Longitude *float64 `json:"longitude" binding:"required" example:"121.4998"`
	Radius    float64  `json:"radius" binding:"required" example:"200"` // 单位米，必须 > 0
	Address   string   `json:"address" example:"上海市浦东新区陆家嘴环路"`
}

// ZoneUpdateRequest 表示更新围栏区域的请求，仅更新提供的字段
type ZoneUpdateRequest struct {
	Name      *string  `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Radius    *float64 `json:"radius,omitempty"`
	Active    *bool    `json:"active,omitempty"`
	Address   *string  `json:"address,omitempty"`
}

// ShiftCreateRequest 表示创建排班的请求
type ShiftCreateRequest struct {
	AgentID  uint       `json:"agent_id" binding:"required" example:"3"`
	ZoneID   uint       `json:"zone_id" binding:"required" example:"1"`
	StartsAt time.Time  `json:"starts_at" binding:"required" example:"2023-07-01T08:00:00Z"`
	EndsAt   *time.Time `json:"ends_at,omitempty" example:"2023-07-01T20:00:00Z"`
}

// HandleZoneFunc 返回一个处理围栏区域请求的Gin处理函数
func HandleZoneFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewZoneController(ctx, container)

		switch method {
		case "getZones":
			controller.GetZones()
		case "getZone":
			controller.GetZone()
		case "createZone":
			controller.CreateZone()
		case "updateZone":
			controller.UpdateZone()
		case "createShift":
			controller.CreateShift()
		case "startShift":
			controller.StartShift()
		case "endShift":
			controller.EndShift()
		case "getAgentShifts":
			controller.GetAgentShifts()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. GetZones 处理获取围栏区域列表的请求
// @Summary      围栏区域列表
// @Description  分页获取全部围栏区域
// @Tags         Zone
// @Produce      json
// @Param        page query int false "页码"
// @Param        page_size query int false "每页条数"
// @Success      200  {object}  map[string]interface{}
// @Router       /zones [get]
// @Security     BearerAuth
func (c *ZoneController) GetZones() {
	page, _ := strconv.Atoi(c.Ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.Ctx.DefaultQuery("page_size", "20"))

	geofenceService := c.Container.GetService("geofence").(services.InterfaceGeofenceService)
	zones, total, err := geofenceService.GetAllZones(page, pageSize)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "获取围栏区域失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"zones":     zones,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// 2. GetZone 处理获取单个围栏区域的请求
// @Summary      围栏区域详情
// @Tags         Zone
// @Produce      json
// @Param        id path int true "区域ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /zones/{id} [get]
// @Security     BearerAuth
func (c *ZoneController) GetZone() {
	id, err := strconv.ParseUint(c.Ctx.Param("id"), 10, 32)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的区域ID", nil)
		return
	}

	geofenceService := c.Container.GetService("geofence").(services.InterfaceGeofenceService)
	zone, err := geofenceService.GetZone(uint(id))
	if err != nil {
		response.Fail(c.Ctx, code.ErrZoneNotFound, nil)
		return
	}

	response.Success(c.Ctx, zone)
}

// 3. CreateZone 处理创建围栏区域的请求
// @Summary      创建围栏区域
// @Description  创建新的圆形围栏区域，半径必须为正数
// @Tags         Zone
// @Accept       json
// @Produce      json
// @Param        request body ZoneCreateRequest true "区域参数"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /zones [post]
// @Security     BearerAuth
func (c *ZoneController) CreateZone() {
	var req ZoneCreateRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil || req.Latitude == nil || req.Longitude == nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	if err := services.ValidateCoordinates(*req.Latitude, *req.Longitude, 0); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrLocationInvalid, err.Error(), nil)
		return
	}
	if req.Radius <= 0 {
		response.FailWithMessage(c.Ctx, code.ErrZoneRadiusInvalid, "围栏半径必须为正数", nil)
		return
	}

	zone := &models.GeofenceZone{
		Name:      req.Name,
		SiteCode:  req.SiteCode,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Radius:    req.Radius,
		Active:    true,
		Address:   req.Address,
	}

	geofenceService := c.Container.GetService("geofence").(services.InterfaceGeofenceService)
	if err := geofenceService.CreateZone(zone); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "创建围栏区域失败: "+err.Error(), nil)
		return
	}

	// 区域变更后列表缓存即失效
	middleware.PurgeCache()

	response.Success(c.Ctx, zone)
}

// 4. UpdateZone 处理更新围栏区域的请求
// @Summary      更新围栏区域
// @Description  更新围栏区域属性，半径仍须保持正数
// @Tags         Zone
// @Accept       json
// @Produce      json
// @Param        id path int true "区域ID"
// @Param        request body ZoneUpdateRequest true "更新字段"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /zones/{id} [put]
// @Security     BearerAuth
func (c *ZoneController) UpdateZone() {
	id, err := strconv.ParseUint(c.Ctx.Param("id"), 10, 32)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的区域ID", nil)
		return
	}

	var req ZoneUpdateRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数", nil)
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.Radius != nil {
		if *req.Radius <= 0 {
			response.FailWithMessage(c.Ctx, code.ErrZoneRadiusInvalid, "围栏半径必须为正数", nil)
			return
		}
		updates["radius"] = *req.Radius
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if len(updates) == 0 {
		response.FailWithMessage(c.Ctx, code.ErrBind, "没有需要更新的字段", nil)
		return
	}

	geofenceService := c.Container.GetService("geofence").(services.InterfaceGeofenceService)
	zone, err := geofenceService.UpdateZone(uint(id), updates)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrZoneNotFound, err.Error(), nil)
		return
	}

	middleware.PurgeCache()

	response.Success(c.Ctx, zone)
}

// 5. CreateShift 处理创建排班的请求
// @Summary      创建排班
// @Description  为安保人员在某站点创建排班
// @Tags         Shift
// @Accept       json
// @Produce      json
// @Param        request body ShiftCreateRequest true "排班参数"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /shifts [post]
// @Security     BearerAuth
func (c *ZoneController) CreateShift() {
	var req ShiftCreateRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	// 排班必须落在有效的围栏区域上
	geofenceService := c.Container.GetService("geofence").(services.InterfaceGeofenceService)
	if _, err := geofenceService.GetZone(req.ZoneID); err != nil {
		response.Fail(c.Ctx, code.ErrZoneNotFound, nil)
		return
	}

	shift := &models.ShiftAssignment{
		AgentID:  req.AgentID,
		ZoneID:   req.ZoneID,
		Status:   models.ShiftStatusScheduled,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	}

	shiftService := c.Container.GetService("shift").(services.InterfaceShiftService)
	if err := shiftService.CreateShift(shift); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "创建排班失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, shift)
}

// 6. StartShift 处理开始排班的请求
// @Summary      开始排班
// @Description  将scheduled状态的排班切换为active，此后该人员的位置上报参与围栏评估
// @Tags         Shift
// @Produce      json
// @Param        id path int true "排班ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /shifts/{id}/start [post]
// @Security     BearerAuth
func (c *ZoneController) StartShift() {
	id, err := strconv.ParseUint(c.Ctx.Param("id"), 10, 32)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的排班ID", nil)
		return
	}

	shiftService := c.Container.GetService("shift").(services.InterfaceShiftService)
	if err := shiftService.StartShift(uint(id)); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrValidation, err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{"shift_id": id, "status": models.ShiftStatusActive})
}

// 7. EndShift 处理结束排班的请求
// @Summary      结束排班
// @Tags         Shift
// @Produce      json
// @Param        id path int true "排班ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /shifts/{id}/end [post]
// @Security     BearerAuth
func (c *ZoneController) EndShift() {
	id, err := strconv.ParseUint(c.Ctx.Param("id"), 10, 32)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的排班ID", nil)
		return
	}

	shiftService := c.Container.GetService("shift").(services.InterfaceShiftService)
	if err := shiftService.EndShift(uint(id)); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrValidation, err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{"shift_id": id, "status": models.ShiftStatusCompleted})
}

// 8. GetAgentShifts 处理获取人员排班列表的请求
// @Summary      人员排班列表
// @Tags         Shift
// @Produce      json
// @Param        agent_id path int true "人员ID"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页条数"
// @Success      200  {object}  map[string]interface{}
// @Router       /shifts/agent/{agent_id} [get]
// @Security     BearerAuth
func (c *ZoneController) GetAgentShifts() {
	agentID, err := strconv.ParseUint(c.Ctx.Param("agent_id"), 10, 32)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的人员ID", nil)
		return
	}
	page, _ := strconv.Atoi(c.Ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.Ctx.DefaultQuery("page_size", "20"))

	shiftService := c.Container.GetService("shift").(services.InterfaceShiftService)
	shifts, total, err := shiftService.GetShiftsByAgent(uint(agentID), page, pageSize)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "查询排班失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"shifts":    shifts,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
