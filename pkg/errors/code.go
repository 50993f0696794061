package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: User module errors
// 12000-12999: Problem record module errors
// 13000-13999: Profile module errors
// 14000-14999: Suggestion gateway errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError       ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102
	TransactionFailed   ErrorCode = 10103

	// Cache errors (10200-10299)
	CacheError     ErrorCode = 10200
	CacheMiss      ErrorCode = 10201
	CacheSetFailed ErrorCode = 10202

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// Storage errors (10400-10499)
	StorageError       ErrorCode = 10400
	ObjectUploadFailed ErrorCode = 10401
	ObjectTooLarge     ErrorCode = 10402

	// ========== User Module Errors (11000-11999) ==========

	// Authentication (11000-11099)
	InvalidCredentials    ErrorCode = 11000
	UserNotFound          ErrorCode = 11001
	PasswordIncorrect     ErrorCode = 11002
	TokenExpired          ErrorCode = 11003
	TokenInvalid          ErrorCode = 11004
	TokenGenerationFailed ErrorCode = 11005

	// Registration (11100-11199)
	UsernameAlreadyExists ErrorCode = 11100
	EmailAlreadyExists    ErrorCode = 11101
	InvalidUsername       ErrorCode = 11102
	InvalidEmail          ErrorCode = 11103
	InvalidPassword       ErrorCode = 11104
	PasswordTooWeak       ErrorCode = 11105

	// User operations (11200-11299)
	UserUpdateFailed ErrorCode = 11200
	AccountSuspended ErrorCode = 11201

	// ========== Problem Record Module Errors (12000-12999) ==========

	// Record basic (12000-12099)
	ProblemNotFound     ErrorCode = 12000
	ProblemAccessDenied ErrorCode = 12001
	ProblemCreateFailed ErrorCode = 12002
	ProblemUpdateFailed ErrorCode = 12003
	ProblemDeleteFailed ErrorCode = 12004

	// Record fields (12100-12199)
	InvalidDifficulty ErrorCode = 12100
	InvalidStatus     ErrorCode = 12101
	InvalidSortKey    ErrorCode = 12102

	// Export (12200-12299)
	ExportFailed ErrorCode = 12200

	// ========== Profile Module Errors (13000-13999) ==========

	ProfileNotFound     ErrorCode = 13000
	ProfileUpdateFailed ErrorCode = 13001
	ProfileCreateFailed ErrorCode = 13002
	AvatarUploadFailed  ErrorCode = 13100
	AvatarTooLarge      ErrorCode = 13101
	AvatarInvalidFormat ErrorCode = 13102
	RecomputeFailed     ErrorCode = 13200
	DashboardLoadFailed ErrorCode = 13300

	// ========== Suggestion Gateway Errors (14000-14999) ==========

	SuggestionProviderError ErrorCode = 14000
	SuggestionParseFailed   ErrorCode = 14001
	SuggestionTitleRequired ErrorCode = 14002
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:       "Database operation failed",
	RecordNotFound:      "Record not found in database",
	RecordAlreadyExists: "Record already exists",
	TransactionFailed:   "Database transaction failed",

	// Cache
	CacheError:     "Cache operation failed",
	CacheMiss:      "Cache miss",
	CacheSetFailed: "Failed to set cache",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Storage
	StorageError:       "Object storage operation failed",
	ObjectUploadFailed: "Failed to upload object",
	ObjectTooLarge:     "Object is too large",

	// User - Authentication
	InvalidCredentials:    "Invalid username or password",
	UserNotFound:          "User not found",
	PasswordIncorrect:     "Incorrect password",
	TokenExpired:          "Token has expired",
	TokenInvalid:          "Invalid token",
	TokenGenerationFailed: "Failed to generate token",

	// User - Registration
	UsernameAlreadyExists: "Username already exists",
	EmailAlreadyExists:    "Email already exists",
	InvalidUsername:       "Invalid username format",
	InvalidEmail:          "Invalid email format",
	InvalidPassword:       "Invalid password format",
	PasswordTooWeak:       "Password is too weak",

	// User - Operations
	UserUpdateFailed: "Failed to update user",
	AccountSuspended: "Account has been suspended",

	// Problem records
	ProblemNotFound:     "Problem not found",
	ProblemAccessDenied: "Access to this problem is denied",
	ProblemCreateFailed: "Failed to create problem",
	ProblemUpdateFailed: "Failed to update problem",
	ProblemDeleteFailed: "Failed to delete problem",
	InvalidDifficulty:   "Difficulty must be Easy, Medium or Hard",
	InvalidStatus:       "Status must be Solved, Unsolved or Attempted",
	InvalidSortKey:      "Unsupported sort key",
	ExportFailed:        "Failed to export problems",

	// Profile
	ProfileNotFound:     "Profile not found",
	ProfileUpdateFailed: "Failed to update profile",
	ProfileCreateFailed: "Failed to create profile",
	AvatarUploadFailed:  "Failed to upload avatar",
	AvatarTooLarge:      "Avatar file is too large",
	AvatarInvalidFormat: "Avatar must be a PNG or JPEG image",
	RecomputeFailed:     "Failed to recompute profile statistics",
	DashboardLoadFailed: "Failed to load dashboard",

	// Suggestions
	SuggestionProviderError: "Suggestion provider returned an error",
	SuggestionParseFailed:   "No suggestions found",
	SuggestionTitleRequired: "Problem title is required for suggestions",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c >= 11000 && c < 11100: // Authentication errors
		return 401
	case c == Unauthorized, c == TokenExpired, c == TokenInvalid:
		return 401
	case c == Forbidden, c == ProblemAccessDenied:
		return 403
	case c == NotFound, c == UserNotFound, c == ProblemNotFound, c == ProfileNotFound:
		return 404
	case c == UsernameAlreadyExists, c == EmailAlreadyExists, c == RecordAlreadyExists:
		return 409
	case c >= 11100 && c < 11200: // Registration errors
		return 400
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == InvalidDifficulty, c == InvalidStatus, c == InvalidSortKey, c == SuggestionTitleRequired:
		return 400
	case c == AvatarTooLarge, c == ObjectTooLarge:
		return 413
	case c == AvatarInvalidFormat:
		return 415
	default:
		return 500
	}
}
