package dto

// RepositorySummary is one entry of the repository listing.
type RepositorySummary struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// RepositoryListResponse represents the repository listing response.
type RepositoryListResponse struct {
	Repositories []RepositorySummary `json:"repositories"`
}

// DeleteRepositoriesRequest names the repositories to remove.
type DeleteRepositoriesRequest struct {
	Repositories []string `json:"repositories"`
}

// DeleteRepositoriesResponse lists the repositories that were removed.
type DeleteRepositoriesResponse struct {
	Deleted []string `json:"deleted"`
}
