package sites

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/HerbHall/rangeping/internal/addrrange"
)

const inventory = `
sites:
  north-hall:
    cidr: 10.12.0.0/22
  library:
    address: 192.168.40.0
    mask: 255.255.255.0
    probe_args: -c 2 -W 1
`

func TestLoadAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	if err := os.WriteFile(path, []byte(inventory), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	inv, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ids := inv.IDs()
	if len(ids) != 2 || ids[0] != "library" || ids[1] != "north-hall" {
		t.Errorf("IDs() = %v", ids)
	}

	lib, err := inv.Lookup("library")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	spec, mask := lib.Spec()
	if spec != "192.168.40.0" || mask != "255.255.255.0" {
		t.Errorf("Spec() = %q, %q", spec, mask)
	}
	if lib.ProbeArgs != "-c 2 -W 1" {
		t.Errorf("ProbeArgs = %q", lib.ProbeArgs)
	}

	north, _ := inv.Lookup("north-hall")
	spec, mask = north.Spec()
	r, err := addrrange.Parse(spec, mask)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.HostCount() != 1022 {
		t.Errorf("HostCount = %d, want 1022", r.HostCount())
	}
}

func TestLookupUnknown(t *testing.T) {
	inv, err := Parse([]byte(inventory))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := inv.Lookup("gym"); !errors.Is(err, ErrUnknownSite) {
		t.Errorf("Lookup(gym) error = %v, want ErrUnknownSite", err)
	}

	var nilInv *Inventory
	if _, err := nilInv.Lookup("gym"); !errors.Is(err, ErrUnknownSite) {
		t.Errorf("nil inventory Lookup error = %v", err)
	}
}

func TestParseRejectsBadSites(t *testing.T) {
	tests := map[string]string{
		"bad cidr": "sites:\n  a:\n    cidr: 10.0.0.0/33\n",
		"both":     "sites:\n  a:\n    cidr: 10.0.0.0/24\n    address: 10.0.0.0\n",
		"no block": "sites:\n  a:\n    notes: empty\n",
		"not yaml": "sites: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Error("Parse error = nil")
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	inv, err := Parse([]byte(inventory))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := inv.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal): %v", err)
	}
	if len(back.Sites) != 2 || back.Sites["north-hall"].CIDR != "10.12.0.0/22" {
		t.Errorf("round trip = %+v", back.Sites)
	}
}

func TestParseEmpty(t *testing.T) {
	inv, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if len(inv.IDs()) != 0 {
		t.Errorf("IDs() = %v, want empty", inv.IDs())
	}
}
