// Package ships holds the read-only vehicle database served to station
// displays: hull class, shield rating and armament per ship.
package ships

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Ship describes one vehicle in the database.
type Ship struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Class    string   `json:"type"`
	Shields  int      `json:"shields"`
	Armament []string `json:"weapons"`
}

// Registry is an in-memory ship database.
type Registry struct {
	mu    sync.RWMutex
	ships map[string]Ship
}

// NewRegistry returns a registry seeded with the stock database.
func NewRegistry() *Registry {
	r := &Registry{ships: make(map[string]Ship)}
	for _, ship := range stockShips {
		r.ships[ship.ID] = ship
	}
	return r
}

var stockShips = []Ship{
	{
		ID:       "millennium_falcon",
		Name:     "Millennium Falcon",
		Class:    "Freighter",
		Shields:  100,
		Armament: []string{"Quad Laser Cannons", "Concussion Missiles"},
	},
	{
		ID:       "corellian_corvette",
		Name:     "Corellian Corvette",
		Class:    "Corvette",
		Shields:  140,
		Armament: []string{"Turbolaser Turrets"},
	},
}

// LoadFile merges ships from a JSON file into the registry. Entries with an
// existing ID replace the stock ones.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read ship database: %w", err)
	}
	var ships []Ship
	if err := json.Unmarshal(data, &ships); err != nil {
		return fmt.Errorf("parse ship database: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ship := range ships {
		if ship.ID == "" {
			return fmt.Errorf("ship %q missing id", ship.Name)
		}
		r.ships[ship.ID] = ship
	}
	return nil
}

// Get returns one ship by ID.
func (r *Registry) Get(id string) (Ship, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ship, ok := r.ships[id]
	return ship, ok
}

// List returns every ship, ordered by ID.
func (r *Registry) List() []Ship {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ships := make([]Ship, 0, len(r.ships))
	for _, ship := range r.ships {
		ships = append(ships, ship)
	}
	sort.Slice(ships, func(i, j int) bool { return ships[i].ID < ships[j].ID })
	return ships
}
