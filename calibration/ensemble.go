// Package calibration loads the camera ensemble: per camera intrinsics, lens distortion, the
// depth-to-color transform, the world pose and the depth pixel lookup table.
package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/a8m/envsubst"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/holo/logging"
	"go.viam.com/holo/rimage/transform"
)

// Sensor defaults, the resolutions of the depth and color streams the ensemble was calibrated for.
const (
	DefaultDepthWidth  = 512
	DefaultDepthHeight = 424
	DefaultColorWidth  = 1920
	DefaultColorHeight = 1080
)

const (
	colorImageName     = "color.tiff"
	meanDepthImageName = "mean.tiff"
)

// ErrCalibrationMissing is returned when a camera has no usable calibration.
var ErrCalibrationMissing = errors.New("calibration unavailable")

// EnsembleConfig is the on-disk ensemble file.
type EnsembleConfig struct {
	Name    string          `json:"name"`
	Cameras []*CameraConfig `json:"cameras"`
}

// CameraConfig is one camera of the ensemble.
type CameraConfig struct {
	Name        string             `json:"name"`
	Address     string             `json:"address"`
	Pose        Matrix4            `json:"pose"`
	Calibration *CalibrationConfig `json:"calibration,omitempty"`
}

// CalibrationConfig holds the calibration of one camera as written in the ensemble file. Either
// depth_intrinsics or depth_frame_to_camera_space_table must be set.
type CalibrationConfig struct {
	ColorIntrinsics *transform.PinholeCameraIntrinsics `json:"color_intrinsics"`
	ColorDistortion *transform.RadialDistortion        `json:"color_distortion,omitempty"`
	DepthToColor    Matrix4                            `json:"depth_to_color"`

	DepthIntrinsics *transform.PinholeCameraIntrinsics `json:"depth_intrinsics,omitempty"`
	DepthDistortion *transform.RadialDistortion        `json:"depth_distortion,omitempty"`

	DepthWidth  int          `json:"depth_width_px,omitempty"`
	DepthHeight int          `json:"depth_height_px,omitempty"`
	Table       [][2]float64 `json:"depth_frame_to_camera_space_table,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *EnsembleConfig) Validate(path string) error {
	seen := make(map[string]struct{}, len(conf.Cameras))
	for i, cam := range conf.Cameras {
		camPath := fmt.Sprintf("%s.cameras.%d", path, i)
		if cam == nil {
			return goutils.NewConfigValidationFieldRequiredError(camPath, "name")
		}
		if err := cam.Validate(camPath); err != nil {
			return err
		}
		if _, ok := seen[cam.Name]; ok {
			return goutils.NewConfigValidationError(camPath, errors.Errorf("duplicate camera name %q", cam.Name))
		}
		seen[cam.Name] = struct{}{}
	}
	return nil
}

// Validate ensures all parts of the config are valid. The calibration block is checked when the
// camera is loaded since a bad calibration only disables that camera.
func (conf *CameraConfig) Validate(path string) error {
	if conf.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if conf.Address == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "address")
	}
	if conf.Pose == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "pose")
	}
	pose, err := conf.Pose.Dense()
	if err != nil {
		return goutils.NewConfigValidationError(path+".pose", err)
	}
	if !IsAffine(pose) {
		return goutils.NewConfigValidationError(path+".pose", errors.New("pose is not an invertible affine transform"))
	}
	return nil
}

// Validate ensures all parts of the calibration are valid.
func (conf *CalibrationConfig) Validate(path string) error {
	if conf.ColorIntrinsics == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "color_intrinsics")
	}
	if err := conf.ColorIntrinsics.CheckValid(); err != nil {
		return goutils.NewConfigValidationError(path+".color_intrinsics", err)
	}
	if conf.ColorDistortion != nil {
		if err := conf.ColorDistortion.CheckValid(); err != nil {
			return goutils.NewConfigValidationError(path+".color_distortion", err)
		}
	}
	if conf.DepthToColor == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "depth_to_color")
	}
	if _, err := conf.DepthToColor.Dense(); err != nil {
		return goutils.NewConfigValidationError(path+".depth_to_color", err)
	}
	if conf.DepthIntrinsics == nil && conf.Table == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "depth_intrinsics")
	}
	if conf.DepthIntrinsics != nil {
		if err := conf.DepthIntrinsics.CheckValid(); err != nil {
			return goutils.NewConfigValidationError(path+".depth_intrinsics", err)
		}
	}
	return nil
}

// depthSize resolves the depth resolution: explicit size, then depth intrinsics, then the default.
func (conf *CalibrationConfig) depthSize() (int, int) {
	switch {
	case conf.DepthWidth > 0 && conf.DepthHeight > 0:
		return conf.DepthWidth, conf.DepthHeight
	case conf.DepthIntrinsics != nil:
		return conf.DepthIntrinsics.Width, conf.DepthIntrinsics.Height
	default:
		return DefaultDepthWidth, DefaultDepthHeight
	}
}

// Calibration is the read-only calibration of one camera.
type Calibration struct {
	DepthWidth      int
	DepthHeight     int
	ColorIntrinsics transform.PinholeCameraIntrinsics
	ColorDistortion transform.RadialDistortion
	DepthToColor    mgl32.Mat4
	Table           *LookupTable
}

// NewCalibration validates conf and resolves its lookup table.
func NewCalibration(conf *CalibrationConfig, path string) (*Calibration, error) {
	if conf == nil {
		return nil, ErrCalibrationMissing
	}
	if err := conf.Validate(path); err != nil {
		return nil, errors.Wrap(ErrCalibrationMissing, err.Error())
	}
	depthToColor, err := conf.DepthToColor.Mat4()
	if err != nil {
		return nil, err
	}
	width, height := conf.depthSize()
	var table *LookupTable
	if conf.Table != nil {
		table, err = NewLookupTable(width, height, conf.Table)
	} else {
		table, err = ComputeLookupTable(conf.DepthIntrinsics, conf.DepthDistortion)
	}
	if err != nil {
		return nil, errors.Wrap(ErrCalibrationMissing, err.Error())
	}
	c := &Calibration{
		DepthWidth:      table.Width,
		DepthHeight:     table.Height,
		ColorIntrinsics: *conf.ColorIntrinsics,
		DepthToColor:    depthToColor,
		Table:           table,
	}
	if conf.ColorDistortion != nil {
		c.ColorDistortion = *conf.ColorDistortion
	}
	return c, nil
}

// Camera is one loaded camera of the ensemble. Calibration is nil when the camera is uncalibrated.
type Camera struct {
	Name        string
	Address     string
	Pose        mgl32.Mat4
	Calibration *Calibration

	ColorImagePath     string
	MeanDepthImagePath string
}

// DepthSize returns the depth resolution, falling back to the default for uncalibrated cameras.
func (c *Camera) DepthSize() (int, int) {
	if c.Calibration == nil {
		return DefaultDepthWidth, DefaultDepthHeight
	}
	return c.Calibration.DepthWidth, c.Calibration.DepthHeight
}

// ColorSize returns the color resolution, falling back to the default for uncalibrated cameras.
func (c *Camera) ColorSize() (int, int) {
	if c.Calibration == nil {
		return DefaultColorWidth, DefaultColorHeight
	}
	return c.Calibration.ColorIntrinsics.Width, c.Calibration.ColorIntrinsics.Height
}

// ImageDir is the directory holding the reference images of camera name next to the ensemble file.
func ImageDir(ensemblePath, name string) string {
	return filepath.Join(filepath.Dir(ensemblePath), "camera"+name)
}

// ReadEnsemble reads and validates an ensemble file, expanding environment variables first.
func ReadEnsemble(path string) (*EnsembleConfig, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf EnsembleConfig
	if err := json.Unmarshal(buf, &conf); err != nil {
		return nil, errors.Wrapf(err, "cannot parse ensemble %q", path)
	}
	if err := conf.Validate("ensemble"); err != nil {
		return nil, err
	}
	return &conf, nil
}

// LoadCameras reads the ensemble at path and resolves every camera. A missing ensemble is not an
// error: it is logged and no cameras are returned. A camera whose calibration is absent or invalid
// is returned uncalibrated.
func LoadCameras(path string, logger logging.Logger) ([]*Camera, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warnw("ensemble file not found, continuing without cameras", "path", path)
			return nil, nil
		}
		return nil, err
	}
	conf, err := ReadEnsemble(path)
	if err != nil {
		return nil, err
	}
	cameras := make([]*Camera, 0, len(conf.Cameras))
	for i, camConf := range conf.Cameras {
		pose, err := camConf.Pose.Mat4()
		if err != nil {
			return nil, err
		}
		dir := ImageDir(path, camConf.Name)
		cam := &Camera{
			Name:               camConf.Name,
			Address:            camConf.Address,
			Pose:               pose,
			ColorImagePath:     filepath.Join(dir, colorImageName),
			MeanDepthImagePath: filepath.Join(dir, meanDepthImageName),
		}
		cam.Calibration, err = NewCalibration(camConf.Calibration, fmt.Sprintf("ensemble.cameras.%d.calibration", i))
		if err != nil {
			logger.Warnw("camera is missing calibration", "camera", cam.Name, "error", err)
			cam.Calibration = nil
		}
		cameras = append(cameras, cam)
	}
	return cameras, nil
}
