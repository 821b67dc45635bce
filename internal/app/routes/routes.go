package routes

import (
	"time"

	_ "fieldtrack-http-service/docs"
	"fieldtrack-http-service/internal/app/controllers"
	"fieldtrack-http-service/internal/app/middleware"
	"fieldtrack-http-service/internal/app/ws"
	"fieldtrack-http-service/internal/domain/services"
	"fieldtrack-http-service/internal/domain/services/container"
	"fieldtrack-http-service/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// 初始化 Gin
	r := gin.Default()

	// 添加 CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// WebSocket连接中心，同时作为警报通知的实时发送端
	hub := ws.NewHub()

	// 创建服务容器
	serviceContainer := container.NewServiceContainer(db, cfg, hub)
	// 初始化中间件
	middleware.InitAuthMiddleware(cfg, db)

	// 启动警报升级调度器，随进程生命周期运行
	escalationService := serviceContainer.GetService("escalation").(services.InterfaceEscalationService)
	escalationService.StartScheduler(make(chan struct{}))

	// 添加 Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// WebSocket实时通道，通过查询参数携带令牌鉴权
	r.GET("/ws", ws.HandleWebSocket(serviceContainer, hub))

	// 注册路由
	registerRoutes(r, serviceContainer)
	return r
}

// registerRoutes 配置所有API路由
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
) {
	// API 路由根路径
	api := r.Group("/api")
	// 设置正确的Content-Type，确保UTF-8编码
	api.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		c.Next()
	})
	// 注册公共路由
	registerPublicRoutes(api, container)
	// 注册需要认证的路由
	registerAuthenticatedRoutes(api, container)
	// 注册管理端路由
	registerManagementRoutes(api, container)
}

// registerPublicRoutes 注册公共路由
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 添加IP限流中间件 - 每秒允许10个请求，最多突发20个请求
	api.Use(middleware.IPRateLimiter(10, 20))

	// 健康检查路由
	api.GET("/ping", controllers.HandleHealthFunc(container, "ping"))
	api.GET("/health", controllers.HandleHealthFunc(container, "ping")) // 兼容Docker健康检查的路由

	// 健康状态路由组
	healthGroup := api.Group("/health")
	healthGroup.GET("/status", controllers.HandleHealthFunc(container, "status"))
	healthGroup.GET("/cache-stats", controllers.HandleHealthFunc(container, "cacheStats"))

	// 认证路由
	api.POST("/auth/login", controllers.HandleJWTFunc(container, "login"))
}

// registerAuthenticatedRoutes 注册需要认证的路由（任意有效角色）
func registerAuthenticatedRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	auth := api.Group("/")
	auth.Use(middleware.AuthenticateUser())

	// 位置上报为高频接口，按认证用户限流 - 每秒5个请求，最多突发10个
	locationGroup := auth.Group("/locations")
	locationGroup.POST("", middleware.UserRateLimiter(5, 10), controllers.HandleLocationFunc(container, "ingestLocation"))
	locationGroup.POST("/validate", controllers.HandleLocationFunc(container, "validatePoint"))

	// 安保人员可创建紧急警报
	auth.POST("/alerts", controllers.HandleAlertFunc(container, "createAlert"))

	// 人员查询自己的排班
	auth.GET("/shifts/agent/:agent_id", controllers.HandleZoneFunc(container, "getAgentShifts"))

	// 围栏区域对所有角色只读可见
	auth.GET("/zones", middleware.Cache(middleware.CacheConfig{Expiration: 1 * time.Minute}), controllers.HandleZoneFunc(container, "getZones"))
	auth.GET("/zones/:id", middleware.Cache(middleware.CacheConfig{Expiration: 1 * time.Minute}), controllers.HandleZoneFunc(container, "getZone"))
}

// registerManagementRoutes 注册管理端路由（主管及以上）
func registerManagementRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 主管路由组
	supervisor := api.Group("/")
	supervisor.Use(middleware.AuthenticateSupervisor())
	supervisor.Use(middleware.IPRateLimiter(30, 50))

	// 位置总览与统计
	locationGroup := supervisor.Group("/locations")
	locationGroup.GET("/current", controllers.HandleLocationFunc(container, "getCurrentPositions"))
	locationGroup.GET("/history/:agent_id", middleware.Cache(middleware.CacheConfig{Expiration: 10 * time.Second}), controllers.HandleLocationFunc(container, "getAgentHistory"))
	locationGroup.GET("/stats", middleware.Cache(middleware.CacheConfig{Expiration: 30 * time.Second}), controllers.HandleLocationFunc(container, "getTrackingStats"))

	// 警报处置路由
	alertGroup := supervisor.Group("/alerts")
	alertGroup.GET("", controllers.HandleAlertFunc(container, "getAlerts"))
	alertGroup.GET("/:uuid", controllers.HandleAlertFunc(container, "getAlert"))
	alertGroup.POST("/:uuid/acknowledge", controllers.HandleAlertFunc(container, "acknowledgeAlert"))
	alertGroup.POST("/:uuid/resolve", controllers.HandleAlertFunc(container, "resolveAlert"))
	alertGroup.GET("/:uuid/notifications", controllers.HandleAlertFunc(container, "getAlertNotifications"))

	// 越界记录查询
	violationGroup := supervisor.Group("/violations")
	violationGroup.GET("", controllers.HandleAlertFunc(container, "getViolations"))
	violationGroup.GET("/:id", controllers.HandleAlertFunc(container, "getViolation"))

	// 排班管理
	shiftGroup := supervisor.Group("/shifts")
	shiftGroup.POST("", controllers.HandleZoneFunc(container, "createShift"))
	shiftGroup.POST("/:id/start", controllers.HandleZoneFunc(container, "startShift"))
	shiftGroup.POST("/:id/end", controllers.HandleZoneFunc(container, "endShift"))

	// 管理员路由组
	admin := api.Group("/")
	admin.Use(middleware.AuthenticateSystemAdmin())
	admin.Use(middleware.IPRateLimiter(30, 50))

	// 围栏区域管理
	zoneGroup := admin.Group("/zones")
	zoneGroup.POST("", controllers.HandleZoneFunc(container, "createZone"))
	zoneGroup.PUT("/:id", controllers.HandleZoneFunc(container, "updateZone"))

	// 用户管理
	userGroup := admin.Group("/users")
	userGroup.GET("", middleware.Cache(middleware.CacheConfig{Expiration: 1 * time.Minute}), controllers.HandleUserFunc(container, "getUsers"))
	userGroup.GET("/:id", middleware.Cache(middleware.CacheConfig{Expiration: 1 * time.Minute}), controllers.HandleUserFunc(container, "getUser"))
	userGroup.POST("", controllers.HandleUserFunc(container, "createUser"))

	// 历史轨迹保留策略
	admin.DELETE("/locations/history", controllers.HandleLocationFunc(container, "cleanupHistory"))
}
