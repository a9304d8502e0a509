// Package rexec runs the external commands the server delegates model inference to.
package rexec

import (
	"go.viam.com/utils"
)

// ProcessConfig describes an external command.
type ProcessConfig struct {
	Name string            `json:"name"`
	Args []string          `json:"args,omitempty"`
	CWD  string            `json:"cwd,omitempty"`
	Env  map[string]string `json:"env,omitempty"`
	// Log forwards every output line of the command to the logger.
	Log bool `json:"log,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *ProcessConfig) Validate(path string) error {
	if cfg.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	return nil
}

// WithEnv returns a copy of cfg that additionally sets the environment variable key.
func (cfg ProcessConfig) WithEnv(key, value string) ProcessConfig {
	env := make(map[string]string, len(cfg.Env)+1)
	for k, v := range cfg.Env {
		env[k] = v
	}
	env[key] = value
	cfg.Env = env
	return cfg
}
