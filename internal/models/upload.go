package models

// UploadResult is what an image service returns for one embed.
// An empty ReplacedText means the embed could not be converted.
type UploadResult struct {
	ReplacedText  string
	ErrorMessages []string
}
