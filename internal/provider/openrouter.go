package provider

// NewOpenRouter returns the OpenRouter variant. referer is sent as
// HTTP-Referer, which OpenRouter uses to attribute the calling app.
func NewOpenRouter(baseURL, referer string) Provider {
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	if referer == "" {
		referer = DefaultReferer
	}
	return &chatProvider{
		id:      OpenRouter,
		baseURL: baseURL,
		headers: map[string]string{
			"HTTP-Referer": referer,
			"X-Title":      "DichAI",
		},
	}
}
