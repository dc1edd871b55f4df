package domain

// CollectionStats describes the chunk collection of a vector store.
type CollectionStats struct {
	Name                string
	DocumentCount       int
	EmbeddingModel      string
	EmbeddingDimensions int
}
