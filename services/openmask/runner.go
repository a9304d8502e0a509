// Package openmask triggers the external segmentation model on the processed scene and encodes
// text queries into the model's embedding space.
package openmask

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/AlexLike/OpenMaskXR/logging"
	"github.com/AlexLike/OpenMaskXR/rexec"
)

// ErrBusy is returned by Runner.Run while another scene is being processed.
var ErrBusy = errors.New("busy handling another request")

// Environment variables set on both model commands.
const (
	EnvRunID               = "OPENMASK_RUN_ID"
	EnvIntrinsicResolution = "OPENMASK_INTRINSIC_RESOLUTION"
	EnvDepthScale          = "OPENMASK_DEPTH_SCALE"
)

// Model steps, in the order a run executes them.
const (
	StepMasks    = "mask computation"
	StepFeatures = "feature computation"
)

// RunParams are the per-request settings passed to the model commands.
type RunParams struct {
	// IntrinsicResolution is the "[height,width]" of the frames the intrinsics were calibrated at.
	IntrinsicResolution string
	DepthScale          float64
}

// DefaultRunParams returns the settings used when a request does not override them.
func DefaultRunParams() RunParams {
	return RunParams{IntrinsicResolution: "[968,1296]", DepthScale: 1000}
}

// RunnerConfig holds the two model commands.
type RunnerConfig struct {
	Masks    rexec.ProcessConfig `json:"masks"`
	Features rexec.ProcessConfig `json:"features"`
}

// Validate ensures all parts of the config are valid.
func (cfg *RunnerConfig) Validate(path string) error {
	if err := cfg.Masks.Validate(fmt.Sprintf("%s.%s", path, "masks")); err != nil {
		return err
	}
	return cfg.Features.Validate(fmt.Sprintf("%s.%s", path, "features"))
}

// StepError reports which model step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + " failed: " + e.Err.Error()
}

// Unwrap returns the error of the failed command.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner runs the model on one scene at a time.
type Runner struct {
	mu     sync.Mutex
	cfg    RunnerConfig
	logger logging.Logger
}

// NewRunner returns a Runner executing the commands in cfg.
func NewRunner(cfg RunnerConfig, logger logging.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

// Run computes the instance masks and then their features. It returns ErrBusy without waiting
// when a run is already in progress. On success the id of the run is returned.
func (r *Runner) Run(ctx context.Context, params RunParams) (string, error) {
	if !r.mu.TryLock() {
		return "", ErrBusy
	}
	defer r.mu.Unlock()

	runID := uuid.NewString()
	start := time.Now()
	logger := r.logger.Sublogger(runID)
	logger.Infow("model run started", "intrinsic_resolution", params.IntrinsicResolution, "depth_scale", params.DepthScale)

	steps := []struct {
		name string
		cfg  rexec.ProcessConfig
	}{
		{StepMasks, r.cfg.Masks},
		{StepFeatures, r.cfg.Features},
	}
	for _, step := range steps {
		cfg := step.cfg.
			WithEnv(EnvRunID, runID).
			WithEnv(EnvIntrinsicResolution, params.IntrinsicResolution).
			WithEnv(EnvDepthScale, strconv.FormatFloat(params.DepthScale, 'f', -1, 64))
		if err := rexec.Run(ctx, cfg, logger); err != nil {
			logger.Errorw("model step failed", "step", step.name, "error", err)
			return "", &StepError{Step: step.name, Err: err}
		}
		logger.Infow("model step finished", "step", step.name)
	}
	logger.Infow("model run finished", "duration", time.Since(start))
	return runID, nil
}
