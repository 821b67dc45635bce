package code

// HTTP状态码.
const (
	// StatusOK - 200: 成功.
	StatusOK = 200
	// StatusBadRequest - 400: 请求参数错误.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: 未授权.
	StatusUnauthorized = 401
	// StatusForbidden - 403: 禁止访问.
	StatusForbidden = 403
	// StatusNotFound - 404: 资源不存在.
	StatusNotFound = 404
	// StatusConflict - 409: 资源冲突.
	StatusConflict = 409
	// StatusInternalServerError - 500: 服务器内部错误.
	StatusInternalServerError = 500
	// StatusTooManyRequests - 429: 请求过多.
	StatusTooManyRequests = 429
)

// 通用错误码 (100xxx).
const (
	// ErrSuccess - 200: 成功.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: 未知错误.
	ErrUnknown
	// ErrBind - 400: 请求参数绑定错误.
	ErrBind
	// ErrValidation - 400: 请求参数验证错误.
	ErrValidation
	// ErrTokenInvalid - 401: 令牌无效.
	ErrTokenInvalid
	// ErrTooManyRequests - 429: 请求频率过高.
	ErrTooManyRequests
)

// 用户相关错误码 (101xxx).
const (
	// ErrUserNotFound - 404: 用户不存在.
	ErrUserNotFound int = iota + 101000
	// ErrUserAlreadyExist - 400: 用户已存在.
	ErrUserAlreadyExist
	// ErrUserPasswordIncorrect - 401: 用户密码错误.
	ErrUserPasswordIncorrect
	// ErrAgentNotFound - 404: 安保人员不存在.
	ErrAgentNotFound
)

// 位置相关错误码 (102xxx).
const (
	// ErrLocationInvalid - 400: 位置坐标非法.
	ErrLocationInvalid int = iota + 102000
	// ErrLocationNotFound - 404: 当前位置不存在或已过期.
	ErrLocationNotFound
	// ErrRetentionInvalid - 400: 清理保留天数非法.
	ErrRetentionInvalid
)

// 围栏相关错误码 (103xxx).
const (
	// ErrZoneNotFound - 404: 围栏区域不存在.
	ErrZoneNotFound int = iota + 103000
	// ErrZoneRadiusInvalid - 400: 围栏半径配置非法.
	ErrZoneRadiusInvalid
	// ErrZoneInactive - 400: 围栏区域未启用.
	ErrZoneInactive
)

// 越界记录相关错误码 (104xxx).
const (
	// ErrViolationNotFound - 404: 越界记录不存在.
	ErrViolationNotFound int = iota + 104000
	// ErrViolationExists - 409: 同一越界过程已存在未关闭的记录.
	ErrViolationExists
)

// 警报相关错误码 (105xxx).
const (
	// ErrAlertNotFound - 404: 警报不存在.
	ErrAlertNotFound int = iota + 105000
	// ErrAlertClosed - 400: 警报已关闭，不可再变更.
	ErrAlertClosed
	// ErrAlertStateInvalid - 400: 警报状态不允许该操作.
	ErrAlertStateInvalid
)

// 通知相关错误码 (106xxx).
const (
	// ErrNotifyFailed - 500: 通知发送失败.
	ErrNotifyFailed int = iota + 106000
	// ErrChannelInvalid - 400: 不支持的通知通道.
	ErrChannelInvalid
)

// 数据库相关错误码 (107xxx).
const (
	// ErrDatabase - 500: 数据库错误.
	ErrDatabase int = iota + 107000
	// ErrRecordNotFound - 404: 记录不存在.
	ErrRecordNotFound
)
