package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultInputDir is where inspection records are written and scanned
	DefaultInputDir = "/mnt/cache/appdata/scripts"
	// DefaultTemplatesDir is the folder dockerMan scans for user templates
	DefaultTemplatesDir = "/boot/config/plugins/dockerMan/templates-user"

	RuntimeCLI = "cli"
	RuntimeSDK = "sdk"
)

// Config holds all configuration for a run
type Config struct {
	// Directories
	InputDir     string `yaml:"input_dir"`
	TemplatesDir string `yaml:"templates_dir"`

	// Pipeline decisions, made up front instead of prompted
	GenerateRunning bool `yaml:"generate_running"`
	GenerateStopped bool `yaml:"generate_stopped"`
	ConvertAll      bool `yaml:"convert"`
	Relocate        bool `yaml:"relocate"`
	Overwrite       bool `yaml:"overwrite"`

	// Container runtime
	Runtime      string `yaml:"runtime"`
	DockerBinary string `yaml:"docker_binary"`

	// Logging
	LogLevel string `yaml:"log_level"`

	ConfigFile string `yaml:"-"`
	EnvFile    string `yaml:"-"`
}

// flagValues mirrors the command-line surface
type flagValues struct {
	inputDir     string
	templatesDir string
	running      bool
	stopped      bool
	convert      bool
	relocate     bool
	overwrite    bool
	runtime      string
	logLevel     string
	configFile   string
}

// newFlagSet returns the command-line flags bound to v
func newFlagSet(v *flagValues) *pflag.FlagSet {
	fs := pflag.NewFlagSet("unraid-templates", pflag.ContinueOnError)
	fs.StringVarP(&v.inputDir, "input-dir", "d", DefaultInputDir, "Directory holding <container>.json inspection records")
	fs.StringVarP(&v.templatesDir, "templates-dir", "t", DefaultTemplatesDir, "Directory dockerMan scans for user templates")
	fs.BoolVar(&v.running, "running", false, "Write inspection records for running containers")
	fs.BoolVar(&v.stopped, "stopped", false, "Write inspection records for non-running containers")
	fs.BoolVar(&v.convert, "convert", true, "Convert every valid inspection record to a template")
	fs.BoolVar(&v.relocate, "relocate", false, "Move generated templates into the templates directory")
	fs.BoolVar(&v.overwrite, "overwrite", false, "Replace templates that already exist in the templates directory")
	fs.StringVar(&v.runtime, "runtime", RuntimeCLI, "Runtime adapter to use: cli or sdk")
	fs.StringVar(&v.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVarP(&v.configFile, "config", "c", "", "Optional YAML configuration file")
	return fs
}

// Usage prints the command-line help to stderr
func Usage() {
	var v flagValues
	fs := newFlagSet(&v)
	fmt.Fprintf(os.Stderr, "Usage: unraid-templates [flags]\n\nFlags:\n")
	fmt.Fprint(os.Stderr, fs.FlagUsages())
}

// Load builds the configuration from defaults, an optional YAML file,
// environment variables and finally the given command-line arguments.
// pflag.ErrHelp is returned as-is when help was requested.
func Load(args []string) (*Config, error) {
	var v flagValues
	fs := newFlagSet(&v)
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	envFile := getEnvFile()
	_ = godotenv.Load(envFile)

	cfg := LoadWithDefaults()
	cfg.EnvFile = envFile

	cfg.ConfigFile = getEnv("CONFIG_FILE", "")
	if fs.Changed("config") {
		cfg.ConfigFile = v.configFile
	}
	if cfg.ConfigFile != "" {
		if err := cfg.loadFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if fs.Changed("input-dir") {
		cfg.InputDir = v.inputDir
	}
	if fs.Changed("templates-dir") {
		cfg.TemplatesDir = v.templatesDir
	}
	if fs.Changed("running") {
		cfg.GenerateRunning = v.running
	}
	if fs.Changed("stopped") {
		cfg.GenerateStopped = v.stopped
	}
	if fs.Changed("convert") {
		cfg.ConvertAll = v.convert
	}
	if fs.Changed("relocate") {
		cfg.Relocate = v.relocate
	}
	if fs.Changed("overwrite") {
		cfg.Overwrite = v.overwrite
	}
	if fs.Changed("runtime") {
		cfg.Runtime = v.runtime
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = v.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults returns the built-in defaults
func LoadWithDefaults() *Config {
	return &Config{
		InputDir:     DefaultInputDir,
		TemplatesDir: DefaultTemplatesDir,
		ConvertAll:   true,
		Runtime:      RuntimeCLI,
		DockerBinary: "docker",
		LogLevel:     "info",
		EnvFile:      ".env",
	}
}

var notBlank = regexp.MustCompile(`\S`)

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.InputDir,
			validation.Required.Error("input directory is required"),
			validation.Match(notBlank).Error("input directory is required")),
		validation.Field(&c.Runtime,
			validation.Required.Error("unknown runtime (want cli or sdk)"),
			validation.In(RuntimeCLI, RuntimeSDK).Error("unknown runtime (want cli or sdk)")),
		validation.Field(&c.TemplatesDir,
			validation.When(c.Relocate,
				validation.Required.Error("templates directory is required when relocating"),
				validation.Match(notBlank).Error("templates directory is required when relocating"))),
	)
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.InputDir = getEnv("INPUT_DIR", c.InputDir)
	c.TemplatesDir = getEnv("TEMPLATES_DIR", c.TemplatesDir)
	c.GenerateRunning = getEnvBool("GENERATE_RUNNING", c.GenerateRunning)
	c.GenerateStopped = getEnvBool("GENERATE_STOPPED", c.GenerateStopped)
	c.ConvertAll = getEnvBool("CONVERT", c.ConvertAll)
	c.Relocate = getEnvBool("RELOCATE", c.Relocate)
	c.Overwrite = getEnvBool("OVERWRITE", c.Overwrite)
	c.Runtime = strings.ToLower(getEnv("RUNTIME", c.Runtime))
	c.DockerBinary = getEnv("DOCKER_BINARY", c.DockerBinary)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// getEnvFile returns the path to the .env file
func getEnvFile() string {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		return envFile
	}
	return ".env"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
