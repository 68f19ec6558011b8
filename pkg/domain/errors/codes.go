package errors

// Code represents an error code
type Code string

// Error codes used across the engine and its modules
const (
	CodeUnknown               Code = "UNKNOWN"                // Unknown error occurred
	CodeInternalError         Code = "INTERNAL_ERROR"         // Internal system error
	CodeConfigInvalid         Code = "CONFIG_INVALID"         // Workflow or service configuration invalid
	CodeInvalidParameter      Code = "INVALID_PARAMETER"      // Invalid parameter provided
	CodeMissingParameter      Code = "MISSING_PARAMETER"      // Required parameter missing
	CodeCapabilityUnavailable Code = "CAPABILITY_UNAVAILABLE" // No module implements the capability
	CodeTransientExternal     Code = "TRANSIENT_EXTERNAL"     // External system temporarily unreachable
	CodeNetworkTimeout        Code = "NETWORK_TIMEOUT"        // Network operation timed out
	CodeIoError               Code = "IO_ERROR"               // Input/output operation failed
	CodeNotFound              Code = "NOT_FOUND"              // Resource not found
	CodeAlreadyExists         Code = "ALREADY_EXISTS"         // Resource already exists
	CodeActionNotFound        Code = "ACTION_NOT_FOUND"       // Action type not registered
	CodeModuleNotFound        Code = "MODULE_NOT_FOUND"       // Module not registered
	CodeCancelled             Code = "CANCELLED"              // Run stopped cooperatively
	CodeWorkflowFailed        Code = "WORKFLOW_FAILED"        // Workflow execution failed
	CodeInvalidState          Code = "INVALID_STATE"          // Invalid state transition
	CodeTimerInvalid          Code = "TIMER_INVALID"          // Cron timer failed to parse
)
