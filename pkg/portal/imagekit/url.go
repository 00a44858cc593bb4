package imagekit

import "strings"

// DefaultPreviewImage is shown for prompts without a preview
const DefaultPreviewImage = "https://ik.imagekit.io/promptportal/cinematic.png"

// URL resolves a stored preview path to a delivery URL
func URL(endpoint, path string) string {
	if path == "" {
		return DefaultPreviewImage
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return endpoint + path
	}
	return endpoint + "/" + path
}
