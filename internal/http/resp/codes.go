package resp

// Codes carried in the code field of every JSON response envelope.
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeInternalError = "INTERNAL_ERROR"
	CodeUnavailable   = "UNAVAILABLE"
	CodeBroadcast     = "BROADCAST"
	CodeQueued        = "QUEUED"
)
