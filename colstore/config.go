package colstore

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ic-timon/peakstore/colstore/format"
)

// Config holds container parameters.
type Config struct {
	StringBlockSize  int    `yaml:"string_block_size"`  // string blob block size in bytes, default 16
	ObjectBlockSize  int    `yaml:"object_block_size"`  // object blob block size in bytes, default 32
	StringCacheSize  int    `yaml:"string_cache_size"`  // string write cache entries, default 10000
	ObjectCacheSize  int    `yaml:"object_cache_size"`  // object write cache entries, default 10000
	PeakMapCacheSize int    `yaml:"peakmap_cache_size"` // peak-map proxy cache entries, default 100
	ReadCacheSize    int    `yaml:"read_cache_size"`    // string/object read cache entries, default 1000
	PageCacheSize    int    `yaml:"page_cache_size"`    // decoded pages kept per blob array, default 64
	PageBlocks       int    `yaml:"page_blocks"`        // blocks per persisted page, default 4096
	Compression      string `yaml:"compression"`        // "zstd" (default) or "none"

	Codec      DeepCodec             `yaml:"-"` // object encoding, default GobCodec
	Logger     *zap.Logger           `yaml:"-"` // default zap.NewNop()
	Registerer prometheus.Registerer `yaml:"-"` // nil: metrics are kept but not registered
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StringBlockSize:  16,
		ObjectBlockSize:  32,
		StringCacheSize:  10000,
		ObjectCacheSize:  10000,
		PeakMapCacheSize: 100,
		ReadCacheSize:    1000,
		PageCacheSize:    64,
		PageBlocks:       4096,
		Compression:      "zstd",
		Codec:            GobCodec{},
		Logger:           zap.NewNop(),
	}
}

// OrDefault returns DefaultConfig if c is nil, otherwise normalizes c.
func (c *Config) OrDefault() *Config {
	if c == nil {
		return DefaultConfig()
	}
	if c.StringBlockSize <= 0 {
		c.StringBlockSize = 16
	}
	if c.ObjectBlockSize <= 0 {
		c.ObjectBlockSize = 32
	}
	if c.StringCacheSize <= 0 {
		c.StringCacheSize = 10000
	}
	if c.ObjectCacheSize <= 0 {
		c.ObjectCacheSize = 10000
	}
	if c.PeakMapCacheSize <= 0 {
		c.PeakMapCacheSize = 100
	}
	if c.ReadCacheSize <= 0 {
		c.ReadCacheSize = 1000
	}
	if c.PageCacheSize <= 0 {
		c.PageCacheSize = 64
	}
	if c.PageBlocks <= 0 {
		c.PageBlocks = 4096
	}
	if c.Compression == "" {
		c.Compression = "zstd"
	}
	if c.Codec == nil {
		c.Codec = GobCodec{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

func (c *Config) compression() (format.Compression, error) {
	return format.ParseCompression(c.Compression)
}

// LoadConfig reads a YAML config file. Missing fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if _, err := cfg.compression(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg.OrDefault(), nil
}
