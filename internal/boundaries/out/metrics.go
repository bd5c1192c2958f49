package out

// Upload outcomes reported to RegistryMetrics.
const (
	UploadCommitted = "committed"
	UploadFailed    = "failed"
	UploadAbandoned = "abandoned"
)

// RegistryMetrics records registry level events.
type RegistryMetrics interface {
	BlobCommitted(repository string, size int64)
	UploadFinished(outcome string)
	ManifestPushed(repository, mediaType string)
}
