// Package logging builds the process logger. Request scoped loggers travel
// through context.Context with zerowrap; this package only adds the field
// names specific to the registry.
package logging

// Registry field names, used next to the zerowrap.Field* constants.
const (
	FieldRepository = "repository"
	FieldReference  = "reference"
	FieldDigest     = "digest"
	FieldUploadID   = "upload_id"
	FieldSubject    = "subject"
	FieldRequestID  = "request_id"
	FieldRoute      = "route"
	FieldMediaType  = "media_type"
)
