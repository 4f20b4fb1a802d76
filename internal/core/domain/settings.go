package domain

// Device selects where Active entries are placed.
type Device string

const (
	// DeviceHost keeps Active entries in host memory; promotion is bookkeeping only.
	DeviceHost Device = "host"
	// DeviceAccelerator moves Active entries to accelerator memory.
	DeviceAccelerator Device = "accelerator"
)

// Settings is the resolved hoard configuration.
type Settings struct {
	// Root is the models directory that registry paths are relative to.
	Root string
	// RegistryPath is the models registry file.
	RegistryPath string
	// Budget is the byte budget shared by both tiers.
	Budget int64
	// SequentialOffload demotes entries to Staged as soon as their last lease is released.
	SequentialOffload bool
	// Device selects the placement backend for Active entries.
	Device Device
	// Preload lists keys loaded at startup.
	Preload []string
	// PreloadConcurrency bounds concurrent loads during preload.
	PreloadConcurrency int
	// Scan registers artifacts found under Root at startup.
	Scan bool
	// Listen is the introspection server address.
	Listen string
	// Telemetry enables OpenTelemetry spans.
	Telemetry bool
}
