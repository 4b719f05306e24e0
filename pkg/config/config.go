// Package config loads the shared pipeline configuration from YAML. Missing
// files fall back to defaults, and secrets stay out of the file: the config
// names the environment variable that holds each key.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Chunking controls how normalized documents become chunks.
type Chunking struct {
	TargetTokens  int `yaml:"target_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
	// HeaderWords are the line-start words that open an article section,
	// one per language present in the corpus.
	HeaderWords     []string `yaml:"header_words"`
	MaxChunksPerDoc int      `yaml:"max_chunks_per_doc"`
}

// Embedding selects and configures the embedding provider. Model left empty
// takes the provider's default.
type Embedding struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Dimension     int    `yaml:"dimension"`
	BatchSize     int    `yaml:"batch_size"`
	Concurrency   int    `yaml:"concurrency"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
	PassagePrefix string `yaml:"passage_prefix"`
	QueryPrefix   string `yaml:"query_prefix"`
}

// Key resolves the API key from the configured environment variable.
func (e Embedding) Key() string { return os.Getenv(e.APIKeyEnv) }

// Qdrant holds vector store connection details. Addr is the gRPC endpoint.
type Qdrant struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
}

// Neo4j holds graph store connection details.
type Neo4j struct {
	URI         string `yaml:"uri"`
	User        string `yaml:"user"`
	PasswordEnv string `yaml:"password_env"`
}

// Password resolves the password from the configured environment variable.
func (n Neo4j) Password() string { return os.Getenv(n.PasswordEnv) }

// NATS holds the indexing job bus settings.
type NATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Queue   string `yaml:"queue"`
}

// Gemini configures the answer model.
type Gemini struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Key resolves the API key from the configured environment variable.
func (g Gemini) Key() string { return os.Getenv(g.APIKeyEnv) }

// Retrieval tunes the question answering path.
type Retrieval struct {
	TopK              int     `yaml:"top_k"`
	MinScore          float64 `yaml:"min_score"`
	SearchTimeoutSecs int     `yaml:"search_timeout_secs"`
}

// Config is the root configuration shared by the services.
type Config struct {
	DataDir   string    `yaml:"data_dir"`
	Chunking  Chunking  `yaml:"chunking"`
	Embedding Embedding `yaml:"embedding"`
	Qdrant    Qdrant    `yaml:"qdrant"`
	Neo4j     Neo4j     `yaml:"neo4j"`
	NATS      NATS      `yaml:"nats"`
	Gemini    Gemini    `yaml:"gemini"`
	Retrieval Retrieval `yaml:"retrieval"`
}

// Load reads the config at path, overlaying it on defaults so a partial file
// only overrides what it names. A missing file returns plain defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			normalize(cfg)
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	normalize(cfg)
	return cfg, nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		DataDir: "data",
		Chunking: Chunking{
			TargetTokens:    400,
			OverlapTokens:   50,
			HeaderWords:     []string{"მუხლი", "Article", "Статья"},
			MaxChunksPerDoc: 5000,
		},
		Embedding: Embedding{
			Provider:    "openai",
			BatchSize:   32,
			Concurrency: 4,
			TimeoutSecs: 30,
		},
		Qdrant: Qdrant{
			Addr:       "localhost:6334",
			Collection: "law_chunks",
		},
		Neo4j: Neo4j{
			URI:         "bolt://localhost:7687",
			User:        "neo4j",
			PasswordEnv: "NEO4J_PASSWORD",
		},
		NATS: NATS{
			URL:     "nats://localhost:4222",
			Subject: "norma.index.docs",
			Queue:   "indexers",
		},
		Gemini: Gemini{
			Model:     "gemini-1.5-flash",
			APIKeyEnv: "GEMINI_API_KEY",
		},
		Retrieval: Retrieval{
			TopK:              6,
			SearchTimeoutSecs: 10,
		},
	}
}

// normalize fixes provider-coupled defaults the overlay cannot know.
func normalize(cfg *Config) {
	if cfg.Embedding.APIKeyEnv == "" {
		switch cfg.Embedding.Provider {
		case "gemini":
			cfg.Embedding.APIKeyEnv = "GEMINI_API_KEY"
		case "ollama":
			// local server, no key
		default:
			cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
}
