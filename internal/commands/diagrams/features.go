package diagramscmd

// FeatureGates exposes runtime toggles read by the handlers.
type FeatureGates struct {
	MigrationEnabled func() bool
}

func (g FeatureGates) migrationEnabled() bool {
	if g.MigrationEnabled == nil {
		return true
	}
	return g.MigrationEnabled()
}
