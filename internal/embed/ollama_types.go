package embed

// ollamaEmbedRequest is the request body for POST /api/embed.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the response body from POST /api/embed.
type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// ollamaTagsResponse is the response body from GET /api/tags.
type ollamaTagsResponse struct {
	Models []ollamaModel `json:"models"`
}

// ollamaModel describes a locally available model.
type ollamaModel struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// ollamaErrorResponse is the error body returned on non-2xx status.
type ollamaErrorResponse struct {
	Error string `json:"error"`
}
