// Package config defines the settings of the pipelines and of the model server.
package config

import (
	"github.com/AlexLike/OpenMaskXR/logging"
	"github.com/AlexLike/OpenMaskXR/rexec"
	"github.com/AlexLike/OpenMaskXR/scene"
	"github.com/AlexLike/OpenMaskXR/services/openmask"
)

// DefaultAddress is where the model server listens when no address is configured.
const DefaultAddress = ":8080"

// Config is the whole configuration file.
type Config struct {
	ConfigFilePath string `json:"-"`

	Preprocess  scene.PreprocessConfig  `json:"preprocess"`
	Postprocess scene.PostprocessConfig `json:"postprocess"`
	Server      ServerConfig            `json:"server"`
	Debug       bool                    `json:"debug,omitempty"`
	// LogFile additionally writes logs to a size-rotated file.
	LogFile string `json:"log_file,omitempty"`
}

// ServerConfig configures the model server.
type ServerConfig struct {
	Address string                `json:"address,omitempty"`
	Runner  openmask.RunnerConfig `json:"runner"`
	// Encoder encodes text queries. Query encoding is disabled when it is unset.
	Encoder *rexec.ProcessConfig `json:"encoder,omitempty"`
}

// Default returns the configuration used for every field a file leaves out.
func Default() *Config {
	return &Config{
		Preprocess:  scene.DefaultPreprocessConfig(),
		Postprocess: scene.DefaultPostprocessConfig(),
		Server:      ServerConfig{Address: DefaultAddress},
	}
}

// Validate ensures the pipeline sections are valid. The server section is only checked by
// ServerConfig.Validate since the pipelines run without it.
func (c *Config) Validate() error {
	if err := c.Preprocess.Validate("preprocess"); err != nil {
		return err
	}
	return c.Postprocess.Validate("postprocess")
}

// Validate ensures all parts of the config are valid.
func (c *ServerConfig) Validate(path string) error {
	if err := c.Runner.Validate(path + ".runner"); err != nil {
		return err
	}
	if c.Encoder != nil {
		return c.Encoder.Validate(path + ".encoder")
	}
	return nil
}

// LogLevel is debug when either the command line or the file asks for it.
func (c *Config) LogLevel(cmdLineDebug bool) logging.Level {
	if cmdLineDebug || c.Debug {
		return logging.DEBUG
	}
	return logging.INFO
}
