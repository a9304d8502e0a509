package rexec

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/AlexLike/OpenMaskXR/logging"
)

// Run executes the command and waits for it to exit. A non-zero exit status is an error.
func Run(ctx context.Context, cfg ProcessConfig, logger logging.Logger) error {
	cmd := command(ctx, cfg)
	stdout := outputSink(cfg, logger, "stdout")
	stderr := outputSink(cfg, logger, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err := cmd.Run()
	stdout.flush()
	stderr.flush()
	if err != nil {
		return errors.Wrapf(err, "running %q", cfg.Name)
	}
	return nil
}

// Output executes the command with extraArgs appended and returns what it wrote to stdout.
func Output(ctx context.Context, cfg ProcessConfig, logger logging.Logger, extraArgs ...string) ([]byte, error) {
	cfg.Args = append(append([]string{}, cfg.Args...), extraArgs...)
	cmd := command(ctx, cfg)
	var stdout bytes.Buffer
	stderr := outputSink(cfg, logger, "stderr")
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	err := cmd.Run()
	stderr.flush()
	if err != nil {
		return nil, errors.Wrapf(err, "running %q", cfg.Name)
	}
	return stdout.Bytes(), nil
}

func command(ctx context.Context, cfg ProcessConfig) *exec.Cmd {
	//nolint:gosec
	cmd := exec.CommandContext(ctx, cfg.Name, cfg.Args...)
	cmd.Dir = cfg.CWD
	if len(cfg.Env) > 0 {
		keys := make([]string, 0, len(cfg.Env))
		for k := range cfg.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cmd.Env = os.Environ()
		for _, k := range keys {
			cmd.Env = append(cmd.Env, k+"="+cfg.Env[k])
		}
	}
	return cmd
}

func outputSink(cfg ProcessConfig, logger logging.Logger, stream string) *lineLogger {
	if !cfg.Log {
		return &lineLogger{}
	}
	return &lineLogger{logger: logger, name: cfg.Name, stream: stream}
}

// lineLogger logs each complete line written to it. A nil logger discards everything.
type lineLogger struct {
	logger logging.Logger
	name   string
	stream string
	buf    bytes.Buffer
}

var _ io.Writer = (*lineLogger)(nil)

func (l *lineLogger) Write(p []byte) (int, error) {
	if l.logger == nil {
		return len(p), nil
	}
	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// partial line, keep it for the next write
			l.buf.WriteString(line)
			return len(p), nil
		}
		l.log(line)
	}
}

func (l *lineLogger) flush() {
	if l.logger == nil || l.buf.Len() == 0 {
		return
	}
	l.log(l.buf.String())
	l.buf.Reset()
}

func (l *lineLogger) log(line string) {
	l.logger.Infow(strings.TrimRight(line, "\r\n"), "process", l.name, "stream", l.stream)
}
