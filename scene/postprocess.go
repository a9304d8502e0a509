package scene

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/AlexLike/OpenMaskXR/logging"
	"github.com/AlexLike/OpenMaskXR/pointcloud"
	"github.com/AlexLike/OpenMaskXR/rimage"
	"github.com/AlexLike/OpenMaskXR/spatialmath"
	"github.com/AlexLike/OpenMaskXR/vision/segmentation"
)

// PostprocessReport summarizes a Postprocess run.
type PostprocessReport struct {
	Instances         int
	AssignedTriangles int
	TotalTriangles    int
	// InstanceTriangles holds the number of triangles assigned to each instance.
	InstanceTriangles []int
	// TopKInstances is the number of instances with bundled frames, zero when the model produced
	// no top-k indices.
	TopKInstances int
	FailedTopK    []int
	Duration      time.Duration
}

// String renders one table row per instance.
func (r *PostprocessReport) String() string {
	failed := make(map[int]bool, len(r.FailedTopK))
	for _, k := range r.FailedTopK {
		failed[k] = true
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Instance", "Triangles", "Frames"})
	for k, n := range r.InstanceTriangles {
		frames := "-"
		switch {
		case failed[k]:
			frames = "missing"
		case r.TopKInstances > 0:
			frames = "bundled"
		}
		t.AppendRow(table.Row{k, n, frames})
	}
	return t.Render()
}

// Postprocess assigns the triangles of the processed scene in sceneDir to the instances found by
// the segmentation model and writes the triangle lists, the instance embeddings and, when the
// model produced them, the representative frames of each instance to postprocess_output/.
func Postprocess(sceneDir string, cfg PostprocessConfig, logger logging.Logger) (*PostprocessReport, error) {
	start := time.Now()
	if err := cfg.Validate("postprocess"); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	cloud, err := pointcloud.NewFromPLYFile(filepath.Join(sceneDir, PointCloudFile))
	if err != nil {
		return nil, err
	}
	mesh, err := spatialmath.NewMeshFromOBJFile(filepath.Join(sceneDir, MeshFile))
	if err != nil {
		return nil, err
	}
	mask, err := segmentation.LoadInstanceMask(filepath.Join(sceneDir, ModelOutputDir, MasksFile))
	if err != nil {
		return nil, err
	}
	features, err := segmentation.LoadFeatures(filepath.Join(sceneDir, ModelOutputDir, FeaturesFile))
	if err != nil {
		return nil, err
	}
	if len(features) != mask.Instances() {
		return nil, errors.Errorf("mask has %d instances but there are %d feature rows", mask.Instances(), len(features))
	}
	var topK [][]int
	topKPath := filepath.Join(sceneDir, ModelOutputDir, TopKFile)
	if _, err := os.Stat(topKPath); err == nil {
		if topK, err = segmentation.LoadTopK(topKPath); err != nil {
			return nil, err
		}
		if len(topK) != mask.Instances() {
			return nil, errors.Errorf("mask has %d instances but there are %d top-k rows", mask.Instances(), len(topK))
		}
	}
	logger.Infow("loaded model output", "points", cloud.Size(), "triangles", mesh.NumTriangles(), "instances", mask.Instances())

	part, err := segmentation.NewPartitioner(mesh, cloud, mask, segmentation.PartitionOptions{
		Neighbors:      cfg.Neighbors,
		StrictMajority: cfg.StrictMajority,
	})
	if err != nil {
		return nil, err
	}
	assigned := segmentation.NewAssignedSet()
	assignment, err := part.PartitionAll(assigned)
	if err != nil {
		return nil, err
	}

	report := &PostprocessReport{
		Instances:         mask.Instances(),
		AssignedTriangles: len(assigned),
		TotalTriangles:    mesh.NumTriangles(),
		InstanceTriangles: make([]int, mask.Instances()),
	}
	triangleIDs := make(map[string][]int, len(assignment))
	clip := make(map[string][]float64, len(features))
	for _, k := range assignment.Instances() {
		id := strconv.Itoa(k)
		triangleIDs[id] = assignment[k]
		report.InstanceTriangles[k] = len(assignment[k])
		clip[id] = features[k]
		logger.Debugw("partitioned instance", "instance", k, "triangles", len(assignment[k]))
	}

	outDir := filepath.Join(sceneDir, PostprocessOutputDir)
	if err := os.MkdirAll(outDir, dirPerm); err != nil {
		return nil, err
	}
	if err := writeJSONFile(filepath.Join(outDir, TriangleIDsFile), triangleIDs); err != nil {
		return nil, err
	}
	if err := writeJSONFile(filepath.Join(outDir, ClipFile), clip); err != nil {
		return nil, err
	}

	if topK != nil {
		imagesDir := filepath.Join(sceneDir, cfg.ImagesDir)
		bundles := make(map[string][]string, len(topK))
		for k, frames := range topK {
			bundle, err := encodeTopKImages(imagesDir, frames)
			if err != nil {
				logger.Errorw("cannot bundle representative frames", "instance", k, "error", err)
				report.FailedTopK = append(report.FailedTopK, k)
				continue
			}
			bundles[strconv.Itoa(k)] = bundle
		}
		if err := writeJSONFile(filepath.Join(outDir, TopKImagesFile), bundles); err != nil {
			return nil, err
		}
		report.TopKInstances = len(bundles)
	}

	report.Duration = time.Since(start)
	logger.Infow("postprocessed scene",
		"scene", sceneDir,
		"instances", report.Instances,
		"assigned_triangles", report.AssignedTriangles,
		"total_triangles", report.TotalTriangles,
		"duration", report.Duration,
	)
	return report, nil
}

// encodeTopKImages re-encodes the given frames as base64 JPEG strings.
func encodeTopKImages(imagesDir string, frames []int) ([]string, error) {
	out := make([]string, 0, len(frames))
	for _, frame := range frames {
		img, err := rimage.ReadColorImage(imagesDir, strconv.Itoa(frame))
		if err != nil {
			return nil, err
		}
		data, err := rimage.EncodeJPEG(img)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding frame %d", frame)
		}
		out = append(out, base64.StdEncoding.EncodeToString(data))
	}
	return out, nil
}

func writeJSONFile(path string, v interface{}) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := json.NewEncoder(f).Encode(v); err != nil {
		return errors.Wrapf(err, "writing %q", path)
	}
	return nil
}

// ReadTriangleIDs loads a triangle_ids.json document.
func ReadTriangleIDs(path string) (segmentation.Assignment, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string][]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing %q", path)
	}
	out := make(segmentation.Assignment, len(raw))
	for id, ids := range raw {
		k, err := strconv.Atoi(id)
		if err != nil {
			return nil, errors.Wrapf(err, "instance id %q in %q", id, path)
		}
		out[k] = ids
	}
	return out, nil
}
