package sidecar

import (
	"encoding/json"
	"fmt"

	"github.com/jaja2302/Palm-counting-AI/internal/datastore"
)

// InferFilesFlag selects the sidecar's batch mode.
const InferFilesFlag = "--infer-files"

// InferenceConfig is forwarded verbatim to the sidecar as its last argument.
// Values stay strings, exactly as stored.
type InferenceConfig struct {
	Imgsz         string `json:"imgsz"`
	Conf          string `json:"conf"`
	Iou           string `json:"iou"`
	MaxDet        string `json:"max_det"`
	Device        string `json:"device"`
	ConvertKml    string `json:"convert_kml"`
	ConvertShp    string `json:"convert_shp"`
	SaveAnnotated string `json:"save_annotated"`
	LineWidth     string `json:"line_width"`
	ShowLabels    string `json:"show_labels"`
	ShowConf      string `json:"show_conf"`
}

// ConfigFromApp picks the sidecar knobs out of a stored configuration.
func ConfigFromApp(c datastore.AppConfig) InferenceConfig {
	device := c.Device
	if device == "" {
		device = datastore.DeviceAuto
	}
	return InferenceConfig{
		Imgsz:         c.Imgsz,
		Conf:          c.Conf,
		Iou:           c.Iou,
		MaxDet:        c.MaxDet,
		Device:        device,
		ConvertKml:    c.ConvertKml,
		ConvertShp:    c.ConvertShp,
		SaveAnnotated: c.SaveAnnotated,
		LineWidth:     c.LineWidth,
		ShowLabels:    c.ShowLabels,
		ShowConf:      c.ShowConf,
	}
}

// BuildArgs returns the argument vector after the executable:
//
//	--infer-files <json_array_of_paths> <model_path> <model_name> <config_json>
func BuildArgs(files []string, modelPath, modelName string, cfg InferenceConfig) ([]string, error) {
	if files == nil {
		files = []string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize files: %w", err)
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	return []string{InferFilesFlag, string(filesJSON), modelPath, modelName, string(cfgJSON)}, nil
}
