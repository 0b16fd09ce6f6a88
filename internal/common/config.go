package common

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	OCR       OCRConfig       `yaml:"ocr"`
	Tariff    TariffConfig    `yaml:"tariff"`
	Templates TemplatesConfig `yaml:"templates"`
	Batch     BatchConfig     `yaml:"batch"`
}

// OCRConfig holds text-acquisition configuration
type OCRConfig struct {
	Pdftotext     string `yaml:"pdftotext"`
	Pdftoppm      string `yaml:"pdftoppm"`
	Tesseract     string `yaml:"tesseract"`
	TesseractLang string `yaml:"tesseract_lang"`
	TessdataDir   string `yaml:"tessdata_dir"`
	DPI           int    `yaml:"dpi"`
}

// TariffConfig holds the tariff and parts-master data source configuration
type TariffConfig struct {
	DatabasePath string `yaml:"database_path"`
	TariffTable  string `yaml:"tariff_table"`
	PartsTable   string `yaml:"parts_table"`
}

// TemplatesConfig holds supplier-template store configuration
type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

// BatchConfig holds batch-processing configuration
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 150),
		},
		Tariff: TariffConfig{
			DatabasePath: getEnv("TARIFF_DB_PATH", ""),
			TariffTable:  getEnv("TARIFF_TABLE", "tariff_232"),
			PartsTable:   getEnv("PARTS_TABLE", "parts_master"),
		},
		Templates: TemplatesConfig{
			Dir: getEnv("TEMPLATES_DIR", ""),
		},
		Batch: BatchConfig{
			Workers: getEnvAsInt("BATCH_WORKERS", 4),
		},
	}
}

// LoadConfigFile overlays settings from a YAML file onto an env-loaded config.
// File values win over env values when non-zero.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.merge(&overlay)
	return cfg, nil
}

func (c *Config) merge(o *Config) {
	if o.OCR.Pdftotext != "" {
		c.OCR.Pdftotext = o.OCR.Pdftotext
	}
	if o.OCR.Pdftoppm != "" {
		c.OCR.Pdftoppm = o.OCR.Pdftoppm
	}
	if o.OCR.Tesseract != "" {
		c.OCR.Tesseract = o.OCR.Tesseract
	}
	if o.OCR.TesseractLang != "" {
		c.OCR.TesseractLang = o.OCR.TesseractLang
	}
	if o.OCR.TessdataDir != "" {
		c.OCR.TessdataDir = o.OCR.TessdataDir
	}
	if o.OCR.DPI > 0 {
		c.OCR.DPI = o.OCR.DPI
	}
	if o.Tariff.DatabasePath != "" {
		c.Tariff.DatabasePath = o.Tariff.DatabasePath
	}
	if o.Tariff.TariffTable != "" {
		c.Tariff.TariffTable = o.Tariff.TariffTable
	}
	if o.Tariff.PartsTable != "" {
		c.Tariff.PartsTable = o.Tariff.PartsTable
	}
	if o.Templates.Dir != "" {
		c.Templates.Dir = o.Templates.Dir
	}
	if o.Batch.Workers > 0 {
		c.Batch.Workers = o.Batch.Workers
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
