package domain

// VectorConfig describes how chunks are vectorized and indexed. Reported by collection stats.
type VectorConfig struct {
	Provider            string
	Model               string
	Dimensions          int
	DistanceMetric      string
	Algorithm           string
	DocumentInstruction string
	QueryInstruction    string
}

// DefaultVectorConfig returns settings matching OpenAI text-embedding-3-small.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Provider:       "openai",
		Model:          "text-embedding-3-small",
		Dimensions:     1536,
		DistanceMetric: "cosine",
		Algorithm:      "hnsw",
	}
}

// KeyPrefix namespaces every key finrag writes to a shared Redis/Valkey.
const KeyPrefix = "finrag:"
