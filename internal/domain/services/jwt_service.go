package services

import (
	"errors"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/infrastructure/config"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// InterfaceJWTService 定义JWT服务接口
type InterfaceJWTService interface {
	GenerateToken(userID uint, role models.UserRole) (string, error)
	ValidateToken(tokenString string) (*jwt.Token, error)
	ParseUserID(tokenString string) (uint, models.UserRole, error)
}

// JWTService 提供JWT令牌的签发与校验
type JWTService struct {
	Config *config.Config
	DB     *gorm.DB
}

// NewJWTService 创建新的JWT服务
func NewJWTService(cfg *config.Config, db *gorm.DB) InterfaceJWTService {
	return &JWTService{
		Config: cfg,
		DB:     db,
	}
}

// GenerateToken 生成包含用户ID与角色的令牌，有效期24小时
func (s *JWTService) GenerateToken(userID uint, role models.UserRole) (string, error) {
	claims := jwt.MapClaims{
		"user_id": float64(userID),
		"role":    string(role),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.Config.JWTSecretKey))
}

// ValidateToken 校验令牌签名与有效期
func (s *JWTService) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("非预期的签名方法")
		}
		return []byte(s.Config.JWTSecretKey), nil
	})
}

// ParseUserID 从令牌中解析用户ID与角色（WebSocket连接认证使用）
func (s *JWTService) ParseUserID(tokenString string) (uint, models.UserRole, error) {
	token, err := s.ValidateToken(tokenString)
	if err != nil || !token.Valid {
		return 0, "", errors.New("无效的认证令牌")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errors.New("无效的令牌内容")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", errors.New("令牌缺少用户ID")
	}
	role, ok := claims["role"].(string)
	if !ok {
		return 0, "", errors.New("令牌缺少角色")
	}

	return uint(userID), models.UserRole(role), nil
}
