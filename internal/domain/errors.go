package domain

// DomainErrorCode 领域错误码
type DomainErrorCode string

const (
	CodeParamsInvalid          DomainErrorCode = "PARAMS_INVALID"
	CodeFlashActivityNotExist  DomainErrorCode = "FLASH_ACTIVITY_DOES_NOT_EXIST"
	CodeFlashActivityNotOnline DomainErrorCode = "FLASH_ACTIVITY_NOT_ONLINE"
)

// DomainError 表示领域校验失败，均为同步、不可重试的错误
type DomainError struct {
	Code    DomainErrorCode
	Message string
}

func (e *DomainError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Is 按错误码比较，允许调用方使用 errors.Is 匹配同类错误
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	// ErrInvalidParams 参数缺失或活动自身校验失败
	ErrInvalidParams = &DomainError{Code: CodeParamsInvalid, Message: "invalid parameters"}
	// ErrActivityNotFound 活动不存在
	ErrActivityNotFound = &DomainError{Code: CodeFlashActivityNotExist, Message: "flash activity does not exist"}
	// ErrActivityNotOnline 活动尚未上线
	ErrActivityNotOnline = &DomainError{Code: CodeFlashActivityNotOnline, Message: "flash activity is not online"}
)
