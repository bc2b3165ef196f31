package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

// DSN builds the Postgres connection string for bun's pgdriver.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=disable", d.User, d.Host, d.Port, d.Name)
}

// ModelVariant is one embedding-model configuration under benchmark.
// Key is the short identifier used in score labels and storage; Dim is the
// fixed output dimension of the model.
type ModelVariant struct {
	Key   string `yaml:"key"`
	Model string `yaml:"model"`
	Dim   int    `yaml:"dim"`
	Label string `yaml:"label"`
}

type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
}

type LLMConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	NumPredict  int     `yaml:"num_predict"`
	// NumCtx 0 means "do not send" and Ollama's own default applies.
	NumCtx int `yaml:"num_ctx"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type RAGConfig struct {
	TopK int `yaml:"top_k"`
}

type WERConfig struct {
	ReferenceDir string `yaml:"reference_dir"`
}

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	LLM      LLMConfig      `yaml:"llm"`
	Models   []ModelVariant `yaml:"models"`
	Chunking ChunkingConfig `yaml:"chunking"`
	RAG      RAGConfig      `yaml:"rag"`
	WER      WERConfig      `yaml:"wer"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	// Secrets come from the environment, never from the checked-in file.
	if pw := os.Getenv("DB_PASSWORD"); pw != "" {
		cfg.Database.Password = pw
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("config: at least one embedding model variant is required")
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, Name: "embedding_bench", User: "postgres"},
		Ollama:   OllamaConfig{BaseURL: "http://localhost:11434"},
		LLM: LLMConfig{
			Model:       "gpt-oss:120b",
			Temperature: 0.6,
			TopP:        0.95,
			NumPredict:  25000,
			NumCtx:      50000,
		},
		Chunking: ChunkingConfig{Size: 1300, Overlap: 30},
		RAG:      RAGConfig{TopK: 5},
		WER:      WERConfig{ReferenceDir: "best_ocr"},
	}
}
