package services

import (
	"math"
	"testing"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/infrastructure/config"
)

func testGeofenceConfig() *config.Config {
	return &config.Config{
		GeofenceLowOveragePct:    50,
		GeofenceMediumOveragePct: 100,
	}
}

// TestHaversineZeroDistance 同一点的距离应为0
func TestHaversineZeroDistance(t *testing.T) {
	d := Haversine(31.2304, 121.4737, 31.2304, 121.4737)
	if d != 0 {
		t.Errorf("同一点距离应为0，实际为 %f", d)
	}
}

// TestHaversineSymmetry 距离计算与方向无关
func TestHaversineSymmetry(t *testing.T) {
	d1 := Haversine(31.2304, 121.4737, 39.9042, 116.4074)
	d2 := Haversine(39.9042, 116.4074, 31.2304, 121.4737)
	if math.Abs(d1-d2) > 1e-6 {
		t.Errorf("距离应满足对称性: %f != %f", d1, d2)
	}
}

// TestHaversineKnownDistance 上海到北京的大圆距离约1067公里
func TestHaversineKnownDistance(t *testing.T) {
	d := Haversine(31.2304, 121.4737, 39.9042, 116.4074)
	if d < 1050000 || d > 1080000 {
		t.Errorf("上海-北京距离应约为1067公里，实际为 %f 米", d)
	}
}

// TestHaversineSmallDistance 纬度方向0.001度约为111米
func TestHaversineSmallDistance(t *testing.T) {
	d := Haversine(31.0, 121.0, 31.001, 121.0)
	if d < 105 || d > 118 {
		t.Errorf("0.001度纬度差应约为111米，实际为 %f", d)
	}
}

// TestSeverityForOverage 严重程度阈值划分
func TestSeverityForOverage(t *testing.T) {
	cfg := testGeofenceConfig()

	cases := []struct {
		overagePct float64
		want       models.ViolationSeverity
	}{
		{0.1, models.SeverityLow},
		{25, models.SeverityLow},
		{50, models.SeverityLow}, // 边界值归入低危
		{50.1, models.SeverityMedium},
		{100, models.SeverityMedium},
		{100.1, models.SeverityHigh},
		{500, models.SeverityHigh},
	}

	for _, c := range cases {
		got := SeverityForOverage(c.overagePct, cfg)
		if got != c.want {
			t.Errorf("超出%.1f%%时严重程度应为%s，实际为%s", c.overagePct, c.want, got)
		}
	}
}

// TestValidateCoordinates 坐标范围校验
func TestValidateCoordinates(t *testing.T) {
	cases := []struct {
		lat, lon, accuracy float64
		wantErr            bool
	}{
		{31.2304, 121.4737, 10, false},
		{-90, -180, 0, false},
		{90, 180, 0, false},
		{90.1, 0, 0, true},
		{-90.1, 0, 0, true},
		{0, 180.1, 0, true},
		{0, -180.1, 0, true},
		{0, 0, -1, true},
	}

	for _, c := range cases {
		err := ValidateCoordinates(c.lat, c.lon, c.accuracy)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidateCoordinates(%f, %f, %f) 错误结果不符预期: %v", c.lat, c.lon, c.accuracy, err)
		}
	}
}

// TestEvaluateInBounds 界内评估不产生严重程度
func TestEvaluateInBounds(t *testing.T) {
	svc := &GeofenceService{Config: testGeofenceConfig()}
	zone := &models.GeofenceZone{
		Name:      "测试站点",
		Latitude:  31.0,
		Longitude: 121.0,
		Radius:    200,
		Active:    true,
	}

	result, err := svc.Evaluate(31.0005, 121.0, zone)
	if err != nil {
		t.Fatalf("评估失败: %v", err)
	}
	if !result.InBounds {
		t.Errorf("距中心约55米、半径200米，应在界内")
	}
	if result.OveragePct != 0 {
		t.Errorf("界内超出比例应为0，实际为 %f", result.OveragePct)
	}
	if result.Severity != "" {
		t.Errorf("界内不应有严重程度，实际为 %s", result.Severity)
	}
}

// TestEvaluateOutOfBoundsLowSeverity 超出不足半径一半时为低危
func TestEvaluateOutOfBoundsLowSeverity(t *testing.T) {
	svc := &GeofenceService{Config: testGeofenceConfig()}
	zone := &models.GeofenceZone{
		Latitude:  31.0,
		Longitude: 121.0,
		Radius:    100,
		Active:    true,
	}

	// 约145米：半径100米，超出约45%
	result, err := svc.Evaluate(31.0013, 121.0, zone)
	if err != nil {
		t.Fatalf("评估失败: %v", err)
	}
	if result.InBounds {
		t.Fatalf("距中心约145米、半径100米，应在界外")
	}
	if result.Severity != models.SeverityLow {
		t.Errorf("超出约45%%应为低危，实际为 %s (overage=%.1f%%)", result.Severity, result.OveragePct)
	}
}

// TestEvaluateOutOfBoundsHighSeverity 超出半径一倍以上为高危
func TestEvaluateOutOfBoundsHighSeverity(t *testing.T) {
	svc := &GeofenceService{Config: testGeofenceConfig()}
	zone := &models.GeofenceZone{
		Latitude:  31.0,
		Longitude: 121.0,
		Radius:    100,
		Active:    true,
	}

	// 约550米：超出450%
	result, err := svc.Evaluate(31.005, 121.0, zone)
	if err != nil {
		t.Fatalf("评估失败: %v", err)
	}
	if result.Severity != models.SeverityHigh {
		t.Errorf("超出远超一倍应为高危，实际为 %s", result.Severity)
	}
}

// TestEvaluateBoundaryInclusive 恰好等于半径视为界内
func TestEvaluateBoundaryInclusive(t *testing.T) {
	svc := &GeofenceService{Config: testGeofenceConfig()}
	zone := &models.GeofenceZone{
		Latitude:  31.0,
		Longitude: 121.0,
		Active:    true,
	}

	dist := Haversine(31.001, 121.0, zone.Latitude, zone.Longitude)
	zone.Radius = dist

	result, err := svc.Evaluate(31.001, 121.0, zone)
	if err != nil {
		t.Fatalf("评估失败: %v", err)
	}
	if !result.InBounds {
		t.Errorf("距离恰好等于半径时应视为界内")
	}
}

// TestEvaluateInvalidRadius 非法半径是配置错误而不是静默跳过
func TestEvaluateInvalidRadius(t *testing.T) {
	svc := &GeofenceService{Config: testGeofenceConfig()}

	for _, radius := range []float64{0, -10} {
		zone := &models.GeofenceZone{Latitude: 31.0, Longitude: 121.0, Radius: radius}
		if _, err := svc.Evaluate(31.0, 121.0, zone); err == nil {
			t.Errorf("半径%.0f应返回配置错误", radius)
		}
	}
}

// TestEvaluateNilZone 空围栏返回错误
func TestEvaluateNilZone(t *testing.T) {
	svc := &GeofenceService{Config: testGeofenceConfig()}
	if _, err := svc.Evaluate(31.0, 121.0, nil); err == nil {
		t.Error("空围栏应返回错误")
	}
}
