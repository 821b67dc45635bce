package controllers

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
)

// TestIngestRequestZeroCoordinates 赤道/本初子午线上的零值坐标是合法采样，
// 必须能通过请求绑定
func TestIngestRequestZeroCoordinates(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"赤道", `{"latitude":0,"longitude":10.5,"accuracy":5}`},
		{"本初子午线", `{"latitude":31.23,"longitude":0,"accuracy":5}`},
		{"原点", `{"latitude":0,"longitude":0,"accuracy":5}`},
	}

	for _, tc := range cases {
		var req LocationIngestRequest
		if err := binding.JSON.BindBody([]byte(tc.body), &req); err != nil {
			t.Errorf("%s: 零值坐标应通过绑定: %v", tc.name, err)
			continue
		}
		if req.Latitude == nil || req.Longitude == nil {
			t.Errorf("%s: 绑定后坐标不应为空", tc.name)
		}
	}
}

// TestIngestRequestMissingCoordinates 缺少坐标字段应被拒绝
func TestIngestRequestMissingCoordinates(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"缺纬度", `{"longitude":121.47,"accuracy":5}`},
		{"缺经度", `{"latitude":31.23,"accuracy":5}`},
		{"全缺", `{"accuracy":5}`},
	}

	for _, tc := range cases {
		var req LocationIngestRequest
		if err := binding.JSON.BindBody([]byte(tc.body), &req); err == nil {
			t.Errorf("%s: 缺少必填坐标应绑定失败", tc.name)
		}
	}
}

// TestValidateRequestZeroCoordinates 围栏试算请求同样接受零值坐标
func TestValidateRequestZeroCoordinates(t *testing.T) {
	var req PointValidateRequest
	body := []byte(`{"latitude":0,"longitude":0}`)
	if err := binding.JSON.BindBody(body, &req); err != nil {
		t.Fatalf("零值坐标应通过绑定: %v", err)
	}
	if req.Latitude == nil || *req.Latitude != 0 {
		t.Error("纬度0应完整保留")
	}
}
