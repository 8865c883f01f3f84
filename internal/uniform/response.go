package uniform

import "strings"

// Response is the decoded reply of the image generation endpoint.
type Response struct {
	Status   int    `json:"-"`
	ImageURL string `json:"imageUrl,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// OK reports a success status carrying an image URL.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300 && strings.TrimSpace(r.ImageURL) != ""
}
