package middlewares

// Keys stored on *gin.Context. Handlers use the accessor functions instead.
const (
	CtxRequestID = "request_id"
	CtxClaims    = "auth.claims"
	CtxCaller    = "auth.caller"
)
