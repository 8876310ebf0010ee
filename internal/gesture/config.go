package gesture

// Config selects the prototype table.
type Config struct {
	// PrototypesPath points at a JSON prototype table. Empty uses DefaultPrototypes.
	PrototypesPath string `envconfig:"AIRTYPE_PROTOTYPES_PATH"`
}

// Prototypes returns the configured table.
func (c Config) Prototypes() ([]Prototype, error) {
	if c.PrototypesPath == "" {
		return DefaultPrototypes(), nil
	}
	return LoadPrototypesFile(c.PrototypesPath)
}
