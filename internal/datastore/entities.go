package datastore

// AppConfig is one row of the configuration history. Only the newest row is current.
// Knobs are kept as strings so the UI gets back exactly what the user typed.
type AppConfig struct {
	ID             int64   `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Model          string  `gorm:"column:model" json:"model"`
	Imgsz          string  `gorm:"column:imgsz" json:"imgsz"`
	Iou            string  `gorm:"column:iou" json:"iou"`
	Conf           string  `gorm:"column:conf" json:"conf"`
	ConvertShp     string  `gorm:"column:convert_shp" json:"convert_shp"`
	ConvertKml     string  `gorm:"column:convert_kml" json:"convert_kml"`
	MaxDet         string  `gorm:"column:max_det" json:"max_det"`
	LineWidth      string  `gorm:"column:line_width" json:"line_width"`
	ShowLabels     string  `gorm:"column:show_labels" json:"show_labels"`
	ShowConf       string  `gorm:"column:show_conf" json:"show_conf"`
	StatusBlok     string  `gorm:"column:status_blok" json:"status_blok"`
	SaveAnnotated  string  `gorm:"column:save_annotated" json:"save_annotated"`
	LastFolderPath *string `gorm:"column:last_folder_path" json:"last_folder_path"`
	Device         string  `gorm:"column:device" json:"device"`
	ActiveModelID  *int64  `gorm:"column:active_model_id" json:"active_model_id"`
}

// TableName returns the configuration table name.
func (AppConfig) TableName() string { return "configuration" }

// YoloModel is an imported model file managed under the models directory.
type YoloModel struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string `gorm:"column:name" json:"name"`
	Path      string `gorm:"column:path" json:"path"`
	CreatedAt string `gorm:"column:created_at;default:(datetime('now'))" json:"created_at,omitempty"`
	IsActive  bool   `gorm:"-" json:"is_active"`
}

// TableName returns the model library table name.
func (YoloModel) TableName() string { return "yolo_models" }

// TiffFile is an entry in the work queue.
type TiffFile struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Path      string `gorm:"column:path"`
	CreatedAt string `gorm:"column:created_at;default:(datetime('now'))"`
}

// TableName returns the work queue table name.
func (TiffFile) TableName() string { return "tiff_files" }

// Device preferences accepted by the sidecar.
const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// DefaultConfig returns the configuration used when the store holds no row.
func DefaultConfig() AppConfig {
	return AppConfig{
		Model:         "",
		Imgsz:         "12800",
		Iou:           "0.2",
		Conf:          "0.2",
		ConvertShp:    "true",
		ConvertKml:    "false",
		MaxDet:        "10000",
		LineWidth:     "3",
		ShowLabels:    "true",
		ShowConf:      "false",
		StatusBlok:    "Full Blok",
		SaveAnnotated: "true",
		Device:        DeviceAuto,
	}
}
