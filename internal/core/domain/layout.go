package domain

import "path/filepath"

const (
	// ConfigFileName is the name of the hoard configuration file.
	ConfigFileName = "hoard.yaml"

	// RegistryFileName is the name of the models registry file.
	RegistryFileName = "models.yaml"

	// ModelsDirName is the default models directory.
	ModelsDirName = "models"

	// DefaultBudget is the default cache budget in human form.
	DefaultBudget = "6GB"

	// DefaultListen is the default introspection address.
	DefaultListen = "127.0.0.1:9190"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// DefaultModelsPath returns the default models directory.
func DefaultModelsPath() string {
	return ModelsDirName
}

// DefaultRegistryPath returns the default registry path.
// It joins the models directory and models.yaml.
func DefaultRegistryPath() string {
	return filepath.Join(ModelsDirName, RegistryFileName)
}

// DefaultConfigPath returns the default config path, relative to the working directory.
func DefaultConfigPath() string {
	return ConfigFileName
}
