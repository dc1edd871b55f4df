package processor

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/finrag/internal/domain/doctype"
)

// Config is the chunking configuration of one processor instance.
type Config struct {
	ChunkSize           int
	ChunkOverlap        int
	DocType             doctype.Type
	SupportedExtensions []string
	Workers             int
}

// DefaultConfig mirrors the shipped config/local.yaml document section.
func DefaultConfig() Config {
	return Config{
		ChunkSize:           1000,
		ChunkOverlap:        200,
		DocType:             doctype.Financial,
		SupportedExtensions: []string{".txt", ".md", ".pdf"},
		Workers:             4,
	}
}

func (c Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap must be non-negative, got %d", c.ChunkOverlap)
	}
	if len(c.SupportedExtensions) == 0 {
		return fmt.Errorf("at least one supported extension is required")
	}
	return nil
}

func (c Config) extensionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.SupportedExtensions))
	for _, ext := range c.SupportedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}
