package types

// ChatCompletionResponse is the subset of an upstream completion the relay reads.
type ChatCompletionResponse struct {
	ID    string `json:"id"`
	Model string `json:"model"`
	Usage *Usage `json:"usage,omitempty"`
}

// Usage represents token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
