package controllers

import (
	"strconv"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/domain/services"
	"fieldtrack-http-service/internal/domain/services/container"
	"fieldtrack-http-service/internal/error/code"
	"fieldtrack-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
)

// InterfaceUserController 定义用户管理控制器接口
type InterfaceUserController interface {
	GetUsers()
	GetUser()
	CreateUser()
}

// UserController 处理用户管理相关的请求
type UserController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewUserController 创建一个新的用户管理控制器
func NewUserController(ctx *gin.Context, container *container.ServiceContainer) *UserController {
	return &UserController{
		Ctx:       ctx,
		Container: container,
	}
}

// UserCreateRequest 表示创建用户的请求
type UserCreateRequest struct {
	Username string `json:"username" binding:"required" example:"zhangwei"`
	Password string `json:"password" binding:"required" example:"secret123"`
	Name     string `json:"name" example:"张伟"`
	Phone    string `json:"phone" example:"13800138000"`
	Email    string `json:"email" example:"zhangwei@example.com"`
	Role     string `json:"role" binding:"required" example:"agent"` // admin, supervisor, agent
}

// HandleUserFunc 返回一个处理用户管理请求的Gin处理函数
func HandleUserFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewUserController(ctx, container)

		switch method {
		case "getUsers":
			controller.GetUsers()
		case "getUser":
			controller.GetUser()
		case "createUser":
			controller.CreateUser()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "无效的方法", nil)
		}
	}
}

// 1. GetUsers 处理获取用户列表的请求
// @Summary      用户列表
// @Description  分页获取用户列表，可按角色过滤
// @Tags         User
// @Produce      json
// @Param        role query string false "角色过滤：admin/supervisor/agent"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页条数"
// @Success      200  {object}  map[string]interface{}
// @Router       /users [get]
// @Security     BearerAuth
func (c *UserController) GetUsers() {
	role := c.Ctx.Query("role")
	page, _ := strconv.Atoi(c.Ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.Ctx.DefaultQuery("page_size", "20"))

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	users, total, err := userService.GetAllUsers(role, page, pageSize)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrDatabase, "查询用户失败: "+err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"users":     users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// 2. GetUser 处理获取单个用户的请求
// @Summary      用户详情
// @Tags         User
// @Produce      json
// @Param        id path int true "用户ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
// @Security     BearerAuth
func (c *UserController) GetUser() {
	id, err := strconv.ParseUint(c.Ctx.Param("id"), 10, 32)
	if err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的用户ID", nil)
		return
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	user, err := userService.GetUserByID(uint(id))
	if err != nil {
		response.Fail(c.Ctx, code.ErrUserNotFound, nil)
		return
	}

	response.Success(c.Ctx, user)
}

// 3. CreateUser 处理创建用户的请求
// @Summary      创建用户
// @Description  创建新用户，用户名全局唯一，密码以bcrypt哈希存储
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        request body UserCreateRequest true "用户参数"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  ErrorResponse
// @Router       /users [post]
// @Security     BearerAuth
func (c *UserController) CreateUser() {
	var req UserCreateRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrBind, "无效的请求参数: "+err.Error(), nil)
		return
	}

	role := models.UserRole(req.Role)
	if role != models.RoleAdmin && role != models.RoleSupervisor && role != models.RoleAgent {
		response.FailWithMessage(c.Ctx, code.ErrValidation, "无效的用户角色", nil)
		return
	}

	user := &models.User{
		Username: req.Username,
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Role:     role,
		Status:   models.UserStatusActive,
	}

	userService := c.Container.GetService("user").(services.InterfaceUserService)
	if err := userService.CreateUser(user, req.Password); err != nil {
		response.FailWithMessage(c.Ctx, code.ErrUserAlreadyExist, err.Error(), nil)
		return
	}

	response.Success(c.Ctx, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
}
