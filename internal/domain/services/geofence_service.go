package services

import (
	"errors"
	"math"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/infrastructure/config"

	"gorm.io/gorm"
)

// 地球平均半径，单位米。球面近似在站点尺度的距离下足够精确。
const earthRadiusMeters = 6371000

// EvaluationResult 一次围栏评估的结果
type EvaluationResult struct {
	ZoneID     uint                     `json:"zone_id"`
	ZoneName   string                   `json:"zone_name"`
	InBounds   bool                     `json:"in_bounds"`
	Distance   float64                  `json:"distance"` // 与围栏中心的距离，单位米
	Radius     float64                  `json:"radius"`
	OveragePct float64                  `json:"overage_pct"` // 超出半径的百分比，在界内为0
	Severity   models.ViolationSeverity `json:"severity,omitempty"`
}

// InterfaceGeofenceService 定义围栏评估服务接口
type InterfaceGeofenceService interface {
	Evaluate(lat, lon float64, zone *models.GeofenceZone) (*EvaluationResult, error)
	ValidatePoint(agentID uint, lat, lon float64, zoneID *uint) ([]EvaluationResult, error)
	GetZone(id uint) (*models.GeofenceZone, error)
	CreateZone(zone *models.GeofenceZone) error
	UpdateZone(id uint, updates map[string]interface{}) (*models.GeofenceZone, error)
	GetAllZones(page, pageSize int) ([]models.GeofenceZone, int64, error)
}

// GeofenceService 提供围栏评估相关服务
type GeofenceService struct {
	DB     *gorm.DB
	Config *config.Config
	Shift  InterfaceShiftService
}

// NewGeofenceService 创建新的围栏评估服务
func NewGeofenceService(db *gorm.DB, cfg *config.Config, shift InterfaceShiftService) InterfaceGeofenceService {
	return &GeofenceService{
		DB:     db,
		Config: cfg,
		Shift:  shift,
	}
}

// Haversine 计算两点间的大圆距离，单位米
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := math.Pi / 180

	dLat := (lat2 - lat1) * toRad
	dLon := (lon2 - lon1) * toRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// SeverityForOverage 根据超出半径的百分比计算严重程度
func SeverityForOverage(overagePct float64, cfg *config.Config) models.ViolationSeverity {
	if overagePct <= cfg.GeofenceLowOveragePct {
		return models.SeverityLow
	}
	if overagePct <= cfg.GeofenceMediumOveragePct {
		return models.SeverityMedium
	}
	return models.SeverityHigh
}

// ValidateCoordinates 校验坐标与精度的合法范围
func ValidateCoordinates(lat, lon, accuracy float64) error {
	if lat < -90 || lat > 90 {
		return errors.New("纬度必须在[-90, 90]范围内")
	}
	if lon < -180 || lon > 180 {
		return errors.New("经度必须在[-180, 180]范围内")
	}
	if accuracy < 0 {
		return errors.New("精度不能为负数")
	}
	return nil
}

// Evaluate 评估某坐标相对围栏的状态。
// 半径配置非法视为配置错误返回，而不是静默跳过。
func (s *GeofenceService) Evaluate(lat, lon float64, zone *models.GeofenceZone) (*EvaluationResult, error) {
	if zone == nil {
		return nil, errors.New("围栏区域为空")
	}
	if zone.Radius <= 0 {
		return nil, errors.New("围栏半径配置非法，必须大于0")
	}

	distance := Haversine(lat, lon, zone.Latitude, zone.Longitude)

	result := &EvaluationResult{
		ZoneID:   zone.ID,
		ZoneName: zone.Name,
		Distance: distance,
		Radius:   zone.Radius,
		InBounds: distance <= zone.Radius,
	}

	if !result.InBounds {
		result.OveragePct = (distance - zone.Radius) / zone.Radius * 100
		result.Severity = SeverityForOverage(result.OveragePct, s.Config)
	}

	return result, nil
}

// ValidatePoint 围栏试算：给定人员与坐标，返回该点是否合规以及将产生的越界评估。
// 只读操作，不产生任何状态变更。
func (s *GeofenceService) ValidatePoint(agentID uint, lat, lon float64, zoneID *uint) ([]EvaluationResult, error) {
	if err := ValidateCoordinates(lat, lon, 0); err != nil {
		return nil, err
	}

	var zones []*models.GeofenceZone

	if zoneID != nil {
		zone, err := s.GetZone(*zoneID)
		if err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	} else {
		// 未指定站点时按人员当前排班解析
		shift, err := s.Shift.GetActiveShift(agentID)
		if err != nil {
			return nil, err
		}
		if shift == nil {
			// 无排班则无围栏约束
			return []EvaluationResult{}, nil
		}
		zone, err := s.GetZone(shift.ZoneID)
		if err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	}

	results := make([]EvaluationResult, 0, len(zones))
	for _, zone := range zones {
		if !zone.Active {
			continue
		}
		result, err := s.Evaluate(lat, lon, zone)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	return results, nil
}

// GetZone 根据ID获取围栏区域
func (s *GeofenceService) GetZone(id uint) (*models.GeofenceZone, error) {
	var zone models.GeofenceZone
	if err := s.DB.First(&zone, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("围栏区域不存在")
		}
		return nil, err
	}
	return &zone, nil
}

// CreateZone 创建围栏区域，半径必须大于0
func (s *GeofenceService) CreateZone(zone *models.GeofenceZone) error {
	if err := ValidateCoordinates(zone.Latitude, zone.Longitude, 0); err != nil {
		return err
	}
	if zone.Radius <= 0 {
		return errors.New("围栏半径必须大于0")
	}
	return s.DB.Create(zone).Error
}

// UpdateZone 更新围栏区域
func (s *GeofenceService) UpdateZone(id uint, updates map[string]interface{}) (*models.GeofenceZone, error) {
	zone, err := s.GetZone(id)
	if err != nil {
		return nil, err
	}

	if radius, ok := updates["radius"].(float64); ok && radius <= 0 {
		return nil, errors.New("围栏半径必须大于0")
	}

	if err := s.DB.Model(zone).Updates(updates).Error; err != nil {
		return nil, err
	}
	return zone, nil
}

// GetAllZones 获取所有围栏区域，支持分页
func (s *GeofenceService) GetAllZones(page, pageSize int) ([]models.GeofenceZone, int64, error) {
	var zones []models.GeofenceZone
	var total int64

	query := s.DB.Model(&models.GeofenceZone{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(&zones).Error; err != nil {
		return nil, 0, err
	}

	return zones, total, nil
}
