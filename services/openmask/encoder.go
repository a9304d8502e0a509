package openmask

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/AlexLike/OpenMaskXR/logging"
	"github.com/AlexLike/OpenMaskXR/rexec"
)

// QueryEncoder maps a text query into the embedding space of the instance features.
type QueryEncoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// QueryPrompt is the prompt a query for subject is encoded as.
func QueryPrompt(subject string) string {
	return subject + " in a scene"
}

// CommandEncoder encodes queries with an external command. The prompt is passed as the last
// argument and the command prints the embedding to stdout as a JSON list of numbers.
type CommandEncoder struct {
	cfg    rexec.ProcessConfig
	logger logging.Logger
}

// NewCommandEncoder returns an encoder running the command in cfg.
func NewCommandEncoder(cfg rexec.ProcessConfig, logger logging.Logger) *CommandEncoder {
	return &CommandEncoder{cfg: cfg, logger: logger}
}

// Encode returns the embedding of QueryPrompt(text).
func (e *CommandEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	out, err := rexec.Output(ctx, e.cfg, e.logger, QueryPrompt(text))
	if err != nil {
		return nil, err
	}
	var embedding []float32
	if err := json.Unmarshal(bytes.TrimSpace(out), &embedding); err != nil {
		return nil, errors.Wrapf(err, "parsing embedding printed by %q", e.cfg.Name)
	}
	if len(embedding) == 0 {
		return nil, errors.Errorf("%q printed an empty embedding", e.cfg.Name)
	}
	return embedding, nil
}
