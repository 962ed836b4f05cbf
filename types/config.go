package types

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fioncat/vbrowse/osutils"
	"gopkg.in/yaml.v3"
)

const (
	configMinimalDuration = time.Millisecond * 100
	configMaximalDuration = time.Minute * 10

	configDefaultAccessRoot       = "download"
	configDefaultSource           = "."
	configDefaultView             = "grid"
	configDefaultCandidateTimeout = time.Second * 5
	configDefaultOpenBoltTimeout  = time.Second * 3
	configDefaultCacheTTL         = time.Minute
	configDefaultMaxTextBytes     = 1 << 20
)

type Config struct {
	BaseDir string `yaml:"-"`
	Path    string `yaml:"-"`

	AccessRoot  string `yaml:"accessRoot"`
	Source      string `yaml:"source"`
	DefaultView string `yaml:"defaultView"`

	CandidateTimeout time.Duration `yaml:"candidateTimeout"`
	OpenBoltTimeout  time.Duration `yaml:"openBoltTimeout"`

	ContentBaseURL string `yaml:"contentBaseURL"`
	Offline        bool   `yaml:"offline"`

	Cache *CacheConfig `yaml:"cache"`

	Preview *PreviewConfig `yaml:"preview"`

	S3 *S3Config `yaml:"s3"`

	Auths Auths `yaml:"auths"`
}

type Auths map[string]string

type CacheConfig struct {
	Enable bool          `yaml:"enable"`
	TTL    time.Duration `yaml:"ttl"`
}

type PreviewConfig struct {
	MaxTextBytes   int   `yaml:"maxTextBytes"`
	RenderMarkdown *bool `yaml:"renderMarkdown"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

func LoadConfig() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	path := getConfigPath(homeDir)

	baseDir := os.Getenv("VBROWSE_BASE_PATH")
	if baseDir == "" {
		baseDir = filepath.Join(homeDir, ".local", "share", "vbrowse")
	}
	err = osutils.EnsureDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("ensure basedir: %w", err)
	}

	if path == "" {
		return newDefaultConfig(path, baseDir), nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newDefaultConfig(path, baseDir), nil
		}

		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	var cfg Config
	err = decoder.Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config yaml file: %w", err)
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.BaseDir = baseDir
	cfg.Path = path

	return &cfg, nil
}

func getConfigPath(homeDir string) string {
	path := os.Getenv("VBROWSE_CONFIG_PATH")
	if path != "" {
		return path
	}
	dir := filepath.Join(homeDir, ".config", "vbrowse")
	ents, err := os.ReadDir(dir)
	if err == nil {
		for _, ent := range ents {
			switch ent.Name() {
			case "config.yaml", "config.yml":
				return filepath.Join(dir, ent.Name())
			}
		}
	}
	return ""
}

func newDefaultConfig(path, baseDir string) *Config {
	c := &Config{
		BaseDir: baseDir,
		Path:    path,

		AccessRoot:  configDefaultAccessRoot,
		Source:      configDefaultSource,
		DefaultView: configDefaultView,

		CandidateTimeout: configDefaultCandidateTimeout,
		OpenBoltTimeout:  configDefaultOpenBoltTimeout,

		S3: &S3Config{},

		Auths: make(Auths),
	}
	c.Cache = c.newDefaultCache()
	c.Preview = c.newDefaultPreview()

	return c
}

func (c *Config) validate() error {
	if c.AccessRoot == "" {
		c.AccessRoot = configDefaultAccessRoot
	}
	if c.Source == "" {
		c.Source = configDefaultSource
	}
	switch c.DefaultView {
	case "":
		c.DefaultView = configDefaultView
	case "grid", "list":
	default:
		return fmt.Errorf("invalid defaultView %q, it should be grid or list", c.DefaultView)
	}

	if c.CandidateTimeout > 0 {
		err := c.validateDuration(c.CandidateTimeout)
		if err != nil {
			return fmt.Errorf("invalid candidateTimeout: %w", err)
		}
	} else {
		c.CandidateTimeout = configDefaultCandidateTimeout
	}

	if c.OpenBoltTimeout > 0 {
		err := c.validateDuration(c.OpenBoltTimeout)
		if err != nil {
			return fmt.Errorf("invalid openBoltTimeout: %w", err)
		}
	} else {
		c.OpenBoltTimeout = configDefaultOpenBoltTimeout
	}

	if c.Auths != nil {
		for key, token := range c.Auths {
			c.Auths[key] = os.ExpandEnv(token)
		}
	} else {
		c.Auths = make(Auths)
	}

	if c.Cache == nil {
		c.Cache = c.newDefaultCache()
	}
	if c.Cache.TTL > 0 {
		err := c.validateDuration(c.Cache.TTL)
		if err != nil {
			return fmt.Errorf("invalid cache.ttl: %w", err)
		}
	} else {
		c.Cache.TTL = configDefaultCacheTTL
	}

	if c.Preview == nil {
		c.Preview = c.newDefaultPreview()
	}
	if c.Preview.MaxTextBytes <= 0 {
		c.Preview.MaxTextBytes = configDefaultMaxTextBytes
	}
	if c.Preview.RenderMarkdown == nil {
		c.Preview.RenderMarkdown = c.newDefaultPreview().RenderMarkdown
	}

	if c.S3 == nil {
		c.S3 = &S3Config{}
	}
	c.S3.AccessKey = os.ExpandEnv(c.S3.AccessKey)
	c.S3.SecretKey = os.ExpandEnv(c.S3.SecretKey)

	return nil
}

func (c *Config) newDefaultCache() *CacheConfig {
	return &CacheConfig{
		Enable: false,
		TTL:    configDefaultCacheTTL,
	}
}

func (c *Config) newDefaultPreview() *PreviewConfig {
	renderMarkdown := true
	return &PreviewConfig{
		MaxTextBytes:   configDefaultMaxTextBytes,
		RenderMarkdown: &renderMarkdown,
	}
}

func (c *Config) validateDuration(d time.Duration) error {
	if d < configMinimalDuration {
		return fmt.Errorf("duration %v is too small, it should >= %v", d, configMinimalDuration)
	}
	if d > configMaximalDuration {
		return fmt.Errorf("duration %v is too big, it should <= %v", d, configMaximalDuration)
	}

	return nil
}
