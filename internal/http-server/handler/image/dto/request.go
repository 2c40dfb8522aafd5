package dto

// UploadURLRequest is the JSON body for URL-based ingestion.
type UploadURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}
