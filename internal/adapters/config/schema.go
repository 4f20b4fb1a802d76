package config

// File is the on-disk shape of hoard.yaml.
type File struct {
	Root               string   `yaml:"root"`
	Registry           string   `yaml:"registry"`
	Budget             string   `yaml:"budget"`
	SequentialOffload  bool     `yaml:"sequential_offload"`
	Device             string   `yaml:"device"`
	Preload            []string `yaml:"preload"`
	PreloadConcurrency int      `yaml:"preload_concurrency"`
	Scan               bool     `yaml:"scan"`
	Listen             string   `yaml:"listen"`
	Telemetry          bool     `yaml:"telemetry"`
}
