package config

const (
	// MaxUploadSize is the maximum size for a single uploaded PDF.
	// This is the authoritative limit; the UI advertises the same value.
	MaxUploadSize = 100 << 20 // 100MB

	// MaxUploadBatch is the maximum number of files accepted in a single
	// call to the upload queue. Larger batches are rejected outright
	// rather than partially enqueued.
	MaxUploadBatch = 20

	// MaxUploadRetries is how many attempts a manual retry makes before
	// the item is left in failed state.
	MaxUploadRetries = 3

	// MaxProjectTitleLength is the maximum length for project titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxProjectTitleLength = 255

	// MaxSectionNameLength is the maximum length for section names.
	MaxSectionNameLength = 255

	// MaxDocumentNameLength is the maximum length for document display names.
	MaxDocumentNameLength = 255

	// MaxLogosPerProject caps how many logos render on the cover page.
	MaxLogosPerProject = 3

	// AccessCodeLength is the length of generated client access codes.
	AccessCodeLength = 8
)
