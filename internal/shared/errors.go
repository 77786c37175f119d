package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Storage errors
	ErrConnection   = fmt.Errorf("database connection failed")
	ErrQueryFailure = fmt.Errorf("query failed")

	// Discovery errors
	ErrPathNotFound     = fmt.Errorf("path not found")
	ErrPermissionDenied = fmt.Errorf("permission denied")

	// Record errors
	ErrMalformedRecord  = fmt.Errorf("malformed record")
	ErrInvalidTimestamp = fmt.Errorf("invalid timestamp")

	// Input validation errors
	ErrInvalidFlag = fmt.Errorf("invalid flag value")
)
