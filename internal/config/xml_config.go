// Package config provides XML-based configuration management for the editor server.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"FloorPlanEditor"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Editor engine configuration
	Editor EditorConfig `xml:"Editor"`

	// Processing configuration
	Processing ProcessingConfig `xml:"Processing"`

	// Security configuration
	Security SecurityConfig `xml:"Security"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains record storage settings
type StorageConfig struct {
	DataDirectory  string `xml:"DataDirectory"`
	StoreDirectory string `xml:"StoreDirectory"`
	// Backend is one of file, duckdb, sqlite.
	Backend      string `xml:"Backend"`
	DatabaseFile string `xml:"DatabaseFile"`
}

// EditorConfig contains shape engine settings
type EditorConfig struct {
	MaxSelection int `xml:"MaxSelection"`
	// HistoryLimit caps undo depth; 0 keeps every operation.
	HistoryLimit       int     `xml:"HistoryLimit"`
	NumberingMinScale  float64 `xml:"NumberingMinScale"`
	FreeTextMinScale   float64 `xml:"FreeTextMinScale"`
	DefaultLatticeSize float64 `xml:"DefaultLatticeSize"`
	DefaultFontSize    float64 `xml:"DefaultFontSize"`
	DefaultStageWidth  float64 `xml:"DefaultStageWidth"`
	DefaultStageHeight float64 `xml:"DefaultStageHeight"`
	// OptimizeAbove switches nodes to the optimized build once a floor holds
	// more shapes than this.
	OptimizeAbove int `xml:"OptimizeAboveShapes"`
	// CatalogFile is an optional YAML file overriding shape defaults.
	CatalogFile string `xml:"CatalogFile"`
}

// ProcessingConfig contains session lifecycle settings
type ProcessingConfig struct {
	SessionTimeoutMinutes  int  `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int  `xml:"CleanupIntervalMinutes"`
	AutosaveSeconds        int  `xml:"AutosaveSeconds"`
	EnableCompression      bool `xml:"EnableCompression"`
	CompressionLevel       int  `xml:"CompressionLevel"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	RequireAuth     bool   `xml:"RequireAuthentication"`
	EditAuthorities string `xml:"EditAuthorities"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `xml:"LogLevel"`
	EnableRequestLogging    bool   `xml:"EnableRequestLogging"`
	DuckDBThreads           int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit       string `xml:"DuckDBMemoryLimit"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "20M",
		},
		Storage: StorageConfig{
			DataDirectory:  "./data",
			StoreDirectory: "./data/store",
			Backend:        "file",
			DatabaseFile:   "./data/editor.db",
		},
		Editor: EditorConfig{
			MaxSelection:       1000,
			HistoryLimit:       0,
			NumberingMinScale:  0.7,
			FreeTextMinScale:   1.5,
			DefaultLatticeSize: 10,
			DefaultFontSize:    12,
			DefaultStageWidth:  2000,
			DefaultStageHeight: 1400,
			OptimizeAbove:      2000,
		},
		Processing: ProcessingConfig{
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			AutosaveSeconds:        10,
			EnableCompression:      true,
			CompressionLevel:       5,
		},
		Security: SecurityConfig{
			RequireAuth:     false,
			EditAuthorities: "ROLE_MAP_EDIT,ROLE_ADMIN",
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			EnableRequestLogging:    true,
			DuckDBThreads:           2,
			DuckDBMemoryLimit:       "256MB",
			WebSocketMaxMessageSize: 1024,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Floor Plan Editor Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR override
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}

	// STORE_BACKEND override
	if backend := os.Getenv("STORE_BACKEND"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
	resolve(&c.Storage.DataDirectory)
	resolve(&c.Storage.StoreDirectory)
	resolve(&c.Storage.DatabaseFile)
	resolve(&c.Editor.CatalogFile)
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetEditAuthorities returns the configured edit authorities as a list
func (c *AppConfig) GetEditAuthorities() []string {
	var out []string
	for _, a := range strings.Split(c.Security.EditAuthorities, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.StoreDirectory,
		filepath.Dir(c.Storage.DatabaseFile),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
