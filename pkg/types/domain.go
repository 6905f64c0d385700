package types

// Model describes a servable text-to-SQL model preset.
type Model struct {
	// Stable identifier for the preset.
	// example: sqlcoder2
	ID string `json:"id" example:"sqlcoder2"`
	// Model repository on the hub.
	// example: defog/sqlcoder2
	Repo string `json:"repo" example:"defog/sqlcoder2"`
	// Pinned hub revision (commit SHA).
	// example: 4ccba9158b67de83b070a4eb2fadaeb58ab2cd14
	Revision string `json:"revision" example:"4ccba9158b67de83b070a4eb2fadaeb58ab2cd14"`
	// Serving container image reference.
	// example: ghcr.io/huggingface/text-generation-inference:1.0.3
	Image string `json:"image" example:"ghcr.io/huggingface/text-generation-inference:1.0.3"`
	// GPU product the preset is sized for.
	// example: A100-40GB
	GPU string `json:"gpu" example:"A100-40GB"`
	// Number of GPUs per container.
	// example: 1
	GPUCount int `json:"gpu_count" example:"1"`
	// Whether the hub repo requires an access token.
	// example: false
	Gated bool `json:"gated,omitempty" example:"false"`
}
