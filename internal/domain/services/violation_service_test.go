package services

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

// TestIsDuplicateKeyError 同一毫秒两次评估并发创建时，
// 唯一索引冲突必须被识别为"已由对方处理"而不是向上抛错
func TestIsDuplicateKeyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm翻译后的冲突", gorm.ErrDuplicatedKey, true},
		{"包装过的gorm冲突", fmt.Errorf("创建越界记录失败: %w", gorm.ErrDuplicatedKey), true},
		{"MySQL原生1062", errors.New("Error 1062 (23000): Duplicate entry '3-1-1' for key 'violations.idx_agent_zone_open'"), true},
		{"普通数据库错误", errors.New("Error 1205 (HY000): Lock wait timeout exceeded"), false},
		{"记录不存在", gorm.ErrRecordNotFound, false},
	}

	for _, tc := range cases {
		if got := isDuplicateKeyError(tc.err); got != tc.want {
			t.Errorf("%s: isDuplicateKeyError = %v, 期望 %v", tc.name, got, tc.want)
		}
	}
}
