package provider

func NewXAI(baseURL string) Provider {
	if baseURL == "" {
		baseURL = DefaultXAIURL
	}
	return &chatProvider{id: XAI, baseURL: baseURL}
}
