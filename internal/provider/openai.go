package provider

func NewOpenAI(baseURL string) Provider {
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	return &chatProvider{id: OpenAI, baseURL: baseURL}
}
