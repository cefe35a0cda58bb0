package manager

import "vynel/pkg/types"

// ModelLookup resolves a model id to its registry entry.
type ModelLookup func(id string) (types.Model, bool)

// RegistryLookup returns a ModelLookup over reg.
func RegistryLookup(reg []types.Model) ModelLookup {
	return func(id string) (types.Model, bool) {
		return findModel(reg, id)
	}
}

func findModel(reg []types.Model, id string) (types.Model, bool) {
	for _, mdl := range reg {
		if mdl.ID == id {
			return mdl, true
		}
	}
	return types.Model{}, false
}

// Helper: find model in registry by id.
func (m *Manager) getModelByID(id string) (types.Model, bool) {
	return findModel(m.registry, id)
}
