package logger

// Standard field keys for structured logging. Using these consistently
// makes log lines greppable and keeps key names stable across releases.
const (
	// Device / transport
	KeyDevice  = "device"
	KeyHost    = "host"
	KeyPort    = "port"
	KeyMaxData = "max_data"

	// Protocol
	KeyCommand  = "command"
	KeyService  = "service"
	KeyStreamID = "stream_id"
	KeyRemoteID = "remote_id"

	// SYNC / install
	KeyRemotePath = "remote_path"
	KeyLocalPath  = "local_path"
	KeyBytesSent  = "bytes_sent"
	KeyTotalBytes = "total_bytes"
	KeyPercent    = "percent"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)
