package code

// 错误码消息映射
var codeMessageMap = map[int]string{
	// 通用错误码
	ErrSuccess:         "成功",
	ErrUnknown:         "未知错误",
	ErrBind:            "请求参数绑定错误",
	ErrValidation:      "请求参数验证错误",
	ErrTokenInvalid:    "无效的认证令牌",
	ErrTooManyRequests: "请求频率过高",

	// 用户相关错误码
	ErrUserNotFound:          "用户不存在",
	ErrUserAlreadyExist:      "用户已存在",
	ErrUserPasswordIncorrect: "用户密码错误",
	ErrAgentNotFound:         "安保人员不存在",

	// 位置相关错误码
	ErrLocationInvalid:  "位置坐标非法",
	ErrLocationNotFound: "当前位置不存在或已过期",
	ErrRetentionInvalid: "清理保留天数非法",

	// 围栏相关错误码
	ErrZoneNotFound:      "围栏区域不存在",
	ErrZoneRadiusInvalid: "围栏半径配置非法",
	ErrZoneInactive:      "围栏区域未启用",

	// 越界记录相关错误码
	ErrViolationNotFound: "越界记录不存在",
	ErrViolationExists:   "该越界过程已存在未关闭的记录",

	// 警报相关错误码
	ErrAlertNotFound:     "警报不存在",
	ErrAlertClosed:       "警报已关闭，不可再变更",
	ErrAlertStateInvalid: "警报状态不允许该操作",

	// 通知相关错误码
	ErrNotifyFailed:   "通知发送失败",
	ErrChannelInvalid: "不支持的通知通道",

	// 数据库相关错误码
	ErrDatabase:       "数据库错误",
	ErrRecordNotFound: "记录不存在",
}

// 错误码HTTP状态码映射
var codeStatusMap = map[int]int{
	// 通用错误码
	ErrSuccess:         StatusOK,
	ErrUnknown:         StatusInternalServerError,
	ErrBind:            StatusBadRequest,
	ErrValidation:      StatusBadRequest,
	ErrTokenInvalid:    StatusUnauthorized,
	ErrTooManyRequests: StatusTooManyRequests,

	// 用户相关错误码
	ErrUserNotFound:          StatusNotFound,
	ErrUserAlreadyExist:      StatusBadRequest,
	ErrUserPasswordIncorrect: StatusUnauthorized,
	ErrAgentNotFound:         StatusNotFound,

	// 位置相关错误码
	ErrLocationInvalid:  StatusBadRequest,
	ErrLocationNotFound: StatusNotFound,
	ErrRetentionInvalid: StatusBadRequest,

	// 围栏相关错误码
	ErrZoneNotFound:      StatusNotFound,
	ErrZoneRadiusInvalid: StatusBadRequest,
	ErrZoneInactive:      StatusBadRequest,

	// 越界记录相关错误码
	ErrViolationNotFound: StatusNotFound,
	ErrViolationExists:   StatusConflict,

	// 警报相关错误码
	ErrAlertNotFound:     StatusNotFound,
	ErrAlertClosed:       StatusBadRequest,
	ErrAlertStateInvalid: StatusBadRequest,

	// 通知相关错误码
	ErrNotifyFailed:   StatusInternalServerError,
	ErrChannelInvalid: StatusBadRequest,

	// 数据库相关错误码
	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,
}

// GetMessage 获取错误码对应的消息
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return "未知错误"
}

// GetStatus 获取错误码对应的HTTP状态码
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}
