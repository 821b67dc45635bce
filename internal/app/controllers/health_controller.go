package controllers

import (
	"fieldtrack-http-service/internal/app/middleware"
	"fieldtrack-http-service/internal/domain/services"
	"fieldtrack-http-service/internal/domain/services/container"
	"fieldtrack-http-service/internal/error/code"
	"fieldtrack-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// HealthController 健康检查控制器
type HealthController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(ctx *gin.Context, container *container.ServiceContainer) *HealthController {
	return &HealthController{
		Ctx:       ctx,
		Container: container,
	}
}

// HandleHealthFunc 返回一个处理健康检查请求的Gin处理函数
func HandleHealthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHealthController(ctx, container)

		switch method {
		case "ping":
			controller.Ping()
		case "status":
			controller.Status()
		case "cacheStats":
			controller.CacheStats()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// Ping 健康检查端点
func (c *HealthController) Ping() {
	response.Success(c.Ctx, gin.H{
		"status":  "healthy",
		"message": "pong",
	})
}

// Status 依赖组件状态检查
// @Summary      系统状态
// @Description  检查数据库、Redis与MQTT连接状态
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health/status [get]
func (c *HealthController) Status() {
	dbStatus := "ok"
	if sqlDB, err := c.Container.GetDB().DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "unavailable"
	}

	redisStatus := "ok"
	redisService := c.Container.GetService("redis").(services.InterfaceRedisService)
	if err := redisService.Ping(); err != nil {
		redisStatus = "unavailable"
	}

	mqttStatus := "ok"
	mqttService := c.Container.GetService("mqtt").(services.InterfaceMQTTService)
	if !mqttService.IsConnected() {
		mqttStatus = "disconnected"
	}

	response.Success(c.Ctx, gin.H{
		"database": dbStatus,
		"redis":    redisStatus,
		"mqtt":     mqttStatus,
	})
}

// CacheStats 响应缓存统计
func (c *HealthController) CacheStats() {
	response.Success(c.Ctx, middleware.CacheStats())
}
