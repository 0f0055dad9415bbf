package service

import "context"

type contextKey string

const (
	requestInfoKey contextKey = "request_info"
	userIDKey      contextKey = "user_id"
)

// RequestInfo 请求信息,用于审计
type RequestInfo struct {
	RequestID string
	IP        string
	UserAgent string
}

// WithRequestInfo 将请求信息写入 context
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// RequestInfoFromContext 从 context 获取请求信息
func RequestInfoFromContext(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}
	info, _ := ctx.Value(requestInfoKey).(RequestInfo)
	return info
}

// WithUserID 将操作人写入 context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext 从 context 获取操作人
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
