package container

import (
	"sync"

	"fieldtrack-http-service/internal/domain/services"
	"fieldtrack-http-service/internal/infrastructure/config"
	"fieldtrack-http-service/pkg/logger"

	"gorm.io/gorm"
)

// ServiceContainer 管理所有服务的依赖注入。
// 服务只通过数据库与缓存共享状态，不使用进程内单例，
// 多实例水平扩展时各实例行为一致。
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config

	// 基础服务
	jwtService   services.InterfaceJWTService
	redisService services.InterfaceRedisService
	mqttService  services.InterfaceMQTTService

	// 业务服务
	userService         services.InterfaceUserService
	shiftService        services.InterfaceShiftService
	geofenceService     services.InterfaceGeofenceService
	violationService    services.InterfaceViolationService
	notificationService services.InterfaceNotificationService
	escalationService   services.InterfaceEscalationService
	locationService     services.InterfaceLocationService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器。
// live 为WebSocket连接中心实现的实时发送端。
func NewServiceContainer(db *gorm.DB, cfg *config.Config, live services.LiveSender) *ServiceContainer {
	if db == nil {
		panic("数据库连接为空")
	}
	if cfg == nil {
		panic("配置为空")
	}
	if live == nil {
		panic("实时发送端为空")
	}

	container := &ServiceContainer{
		db:     db,
		config: cfg,
	}
	container.initializeServices(live)
	return container
}

// initializeServices 按依赖顺序初始化所有服务
func (c *ServiceContainer) initializeServices(live services.LiveSender) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 初始化基础服务
	c.jwtService = services.NewJWTService(c.config, c.db)
	c.redisService = services.NewRedisService(c.config)
	c.mqttService = services.NewMQTTService(c.config)

	// 测试Redis连接
	if err := c.redisService.Ping(); err != nil {
		logger.Warning("Redis连接测试失败: %v", err)
	}

	// 连接MQTTServer；失败不阻塞启动，推送通道降级
	if err := c.mqttService.Connect(); err != nil {
		logger.Warning("MQTT服务连接失败: %v", err)
	}

	// 初始化业务服务
	c.userService = services.NewUserService(c.db, c.config)
	c.shiftService = services.NewShiftService(c.db, c.config)
	c.geofenceService = services.NewGeofenceService(c.db, c.config, c.shiftService)
	c.violationService = services.NewViolationService(c.db, c.config)
	c.notificationService = services.NewNotificationService(c.db, c.config, c.redisService, c.mqttService, live)
	c.escalationService = services.NewEscalationService(c.db, c.config, c.notificationService)
	c.locationService = services.NewLocationService(c.db, c.config, c.redisService,
		c.geofenceService, c.shiftService, c.violationService, c.escalationService)
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.db
	case "jwt":
		return c.jwtService
	case "redis":
		return c.redisService
	case "mqtt":
		return c.mqttService
	case "user":
		return c.userService
	case "shift":
		return c.shiftService
	case "geofence":
		return c.geofenceService
	case "violation":
		return c.violationService
	case "notification":
		return c.notificationService
	case "escalation":
		return c.escalationService
	case "location":
		return c.locationService
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// GetConfig 获取全局配置
func (c *ServiceContainer) GetConfig() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}
