package openmask

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/AlexLike/OpenMaskXR/logging"
	"github.com/AlexLike/OpenMaskXR/rexec"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available")
	}
}

func shell(script string) rexec.ProcessConfig {
	return rexec.ProcessConfig{Name: "sh", Args: []string{"-c", script}, Log: true}
}

func TestRunnerRun(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	trace := filepath.Join(dir, "trace")
	runner := NewRunner(RunnerConfig{
		Masks:    shell(`echo "masks $OPENMASK_INTRINSIC_RESOLUTION" >> ` + trace),
		Features: shell(`echo "features $OPENMASK_DEPTH_SCALE $OPENMASK_RUN_ID" >> ` + trace),
	}, logging.NewTestLogger(t))

	runID, err := runner.Run(context.Background(), RunParams{IntrinsicResolution: "[480,640]", DepthScale: 1000})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, runID, test.ShouldNotBeEmpty)

	data, err := os.ReadFile(trace)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	test.That(t, lines, test.ShouldResemble, []string{"masks [480,640]", "features 1000 " + runID})
}

func TestRunnerStepFailure(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	marker := filepath.Join(dir, "features-ran")
	runner := NewRunner(RunnerConfig{
		Masks:    shell("exit 1"),
		Features: shell("touch " + marker),
	}, logging.NewTestLogger(t))

	_, err := runner.Run(context.Background(), DefaultRunParams())
	var stepErr *StepError
	test.That(t, errors.As(err, &stepErr), test.ShouldBeTrue)
	test.That(t, stepErr.Step, test.ShouldEqual, StepMasks)
	_, statErr := os.Stat(marker)
	test.That(t, os.IsNotExist(statErr), test.ShouldBeTrue)

	runner = NewRunner(RunnerConfig{Masks: shell("true"), Features: shell("exit 2")}, logging.NewTestLogger(t))
	_, err = runner.Run(context.Background(), DefaultRunParams())
	test.That(t, errors.As(err, &stepErr), test.ShouldBeTrue)
	test.That(t, stepErr.Step, test.ShouldEqual, StepFeatures)
	test.That(t, err.Error(), test.ShouldContainSubstring, "feature computation failed")
}

func TestRunnerBusy(t *testing.T) {
	runner := NewRunner(RunnerConfig{Masks: shell("true"), Features: shell("true")}, logging.NewTestLogger(t))
	runner.mu.Lock()
	_, err := runner.Run(context.Background(), DefaultRunParams())
	test.That(t, errors.Is(err, ErrBusy), test.ShouldBeTrue)
	runner.mu.Unlock()
}

func TestRunnerConfigValidate(t *testing.T) {
	cfg := RunnerConfig{Masks: shell("true")}
	err := cfg.Validate("runner")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "runner.features")

	cfg.Features = shell("true")
	test.That(t, cfg.Validate("runner"), test.ShouldBeNil)
}
