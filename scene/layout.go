// Package scene runs the two batch pipelines around the segmentation model: fusing a posed scan
// into a colored point cloud, and turning the model's instance masks into per-instance triangle
// lists with their embeddings.
package scene

// Files and directories of a scan as uploaded by the headset.
const (
	MeshFile            = "mesh.obj"
	ImagesDir           = "images"
	PosesDir            = "poses"
	IntrinsicsFile      = "intrinsics.txt"
	MarkerTransformFile = "markerTransform.txt"
)

// Files and directories of a processed scene, in the layout the segmentation model reads.
const (
	PointCloudFile       = "scene.ply"
	DownsampledFile      = "downsampled_scene.ply"
	DepthDir             = "depth"
	ColorDir             = "color"
	PoseDir              = "pose"
	IntrinsicDir         = "intrinsic"
	IntrinsicColorFile   = "intrinsic_color.txt"
	ColorImageExt        = ".jpg"
	DepthImageExt        = ".png"
	FrameMatrixExt       = ".txt"
	ModelOutputDir       = "output"
	MasksFile            = "scene_masks.npy"
	FeaturesFile         = "scene_openmask3d_features.npy"
	TopKFile             = "topk_indices.npy"
	PostprocessOutputDir = "postprocess_output"
	ClipFile             = "clip.json"
	TriangleIDsFile      = "triangle_ids.json"
	TopKImagesFile       = "topk_base64.json"
)

const dirPerm = 0o750
