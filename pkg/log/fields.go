package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Graph
	FieldCallerID = "caller_id"
	FieldTargetID = "target_id"

	// Service
	FieldService = "service"

	// gRPC
	FieldGRPCMethod = "grpc_method"
	FieldGRPCCode   = "grpc_code"

	// Log type. Audit entries record who changed the graph; consistency
	// entries record counter or reflection drift and are alerted on separately.
	FieldLogType       = "log_type"
	LogTypeAudit       = "audit"
	LogTypeConsistency = "consistency"
)
