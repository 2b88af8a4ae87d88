// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxJSONBody caps every JSON request body.
	MaxJSONBody = 1 << 20 // 1 MB

	// DefaultUploadBytes is the attachment size limit when none is configured.
	DefaultUploadBytes = 10 << 20 // 10 MB

	// MaxSearchResults caps GET /api/search.
	MaxSearchResults = 20
)
