// Package sites reads the YAML inventory that maps site identifiers
// (buildings, closets, floors) to their address blocks.
//
//	sites:
//	  north-hall:
//	    cidr: 10.12.0.0/22
//	  library:
//	    address: 192.168.40.0
//	    mask: 255.255.255.0
//	    probe_args: -c 2 -W 1
package sites

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/HerbHall/rangeping/internal/addrrange"
)

// ErrUnknownSite is returned by Lookup for identifiers not in the inventory.
var ErrUnknownSite = errors.New("unknown site")

// Site is one inventory entry.
type Site struct {
	CIDR      string `yaml:"cidr,omitempty"`
	Address   string `yaml:"address,omitempty"`
	Mask      string `yaml:"mask,omitempty"`
	ProbeArgs string `yaml:"probe_args,omitempty"`
	Notes     string `yaml:"notes,omitempty"`
}

// Spec returns the arguments for addrrange.Parse.
func (s Site) Spec() (spec, mask string) {
	if s.CIDR != "" {
		return s.CIDR, ""
	}
	return s.Address, s.Mask
}

// Inventory maps identifiers to sites.
type Inventory struct {
	Sites map[string]Site `yaml:"sites"`
}

// Load reads and validates an inventory file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates inventory YAML. Every entry must name either
// a CIDR block or an address and mask that addrrange accepts.
func Parse(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("decode sites: %w", err)
	}
	if inv.Sites == nil {
		inv.Sites = make(map[string]Site)
	}
	for id, s := range inv.Sites {
		if s.CIDR != "" && (s.Address != "" || s.Mask != "") {
			return nil, fmt.Errorf("site %q: set either cidr or address/mask, not both", id)
		}
		spec, mask := s.Spec()
		if _, err := addrrange.Parse(spec, mask); err != nil {
			return nil, fmt.Errorf("site %q: %w", id, err)
		}
	}
	return &inv, nil
}

// Lookup returns the site for id.
func (inv *Inventory) Lookup(id string) (Site, error) {
	if inv != nil {
		if s, ok := inv.Sites[id]; ok {
			return s, nil
		}
	}
	return Site{}, fmt.Errorf("%w: %q", ErrUnknownSite, id)
}

// IDs returns the site identifiers in sorted order.
func (inv *Inventory) IDs() []string {
	if inv == nil {
		return nil
	}
	ids := make([]string, 0, len(inv.Sites))
	for id := range inv.Sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Marshal encodes the inventory as YAML.
func (inv *Inventory) Marshal() ([]byte, error) {
	return yaml.Marshal(inv)
}
