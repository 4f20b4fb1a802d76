package registry

// stanzaDTO is one models.yaml entry, keyed by "category/subcategory/name".
type stanzaDTO struct {
	Path         string            `yaml:"path"`
	Format       string            `yaml:"format"`
	Description  string            `yaml:"description,omitempty"`
	Default      bool              `yaml:"default,omitempty"`
	SubArtifacts map[string]string `yaml:"sub_artifacts,omitempty"`
	Error        string            `yaml:"error,omitempty"`
}

const preamble = `# Artifacts known to hoard.
# Keys are category/subcategory/name. Relative paths are resolved against the models root.
# Entries discovered by scanning the models root are not written here.
`
