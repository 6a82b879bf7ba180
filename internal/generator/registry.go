package generator

import (
	"fmt"

	"github.com/BennyGman66/expression-forge-studio-sub006/internal/models"
)

var registry = make(map[string]models.Engine)

// Register adds a new engine to the registry. It's called at startup.
func Register(e models.Engine) {
	info := e.GetInfo()
	if _, exists := registry[info.ID]; exists {
		// Panic is appropriate here as it's a developer error during setup.
		panic(fmt.Sprintf("engine with ID '%s' is already registered", info.ID))
	}
	registry[info.ID] = e
}

// Get returns an engine by its ID.
func Get(id string) (models.Engine, bool) {
	e, ok := registry[id]
	return e, ok
}

// GetAll returns a list of information for all registered engines.
func GetAll() []models.EngineInfo {
	var engines []models.EngineInfo
	for _, e := range registry {
		engines = append(engines, e.GetInfo())
	}
	return engines
}

// UnregisterAll clears the registry. Used by tests.
func UnregisterAll() {
	registry = make(map[string]models.Engine)
}
