// Package rangecache persists resolved address ranges by site identifier so
// that a building's block only has to be typed and computed once.
package rangecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HerbHall/rangeping/internal/addrrange"
	"go.uber.org/zap"
)

// ErrNotFound is returned by KV implementations for unknown keys.
var ErrNotFound = errors.New("not found")

// KV is the durable key-value storage behind a Cache.
type KV interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces the value for key.
	Put(ctx context.Context, key string, value []byte) error
}

// Entry is a resolved range for one identifier.
type Entry struct {
	Identifier string
	Range      addrrange.Range
	HostCount  int
}

// record is the serialized form of an Entry.
type record struct {
	Intervals [4]addrrange.Interval `json:"intervals"`
	HostCount int                   `json:"host_count"`
}

// Cache is a read-through cache of address ranges. Entries are written
// once and only replaced on explicit overwrite.
type Cache struct {
	kv     KV
	logger *zap.Logger
}

// New creates a Cache on top of kv.
func New(kv KV, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{kv: kv, logger: logger}
}

// Resolve returns the cached range for id. On a miss the range is computed
// from spec and mask and stored under id. An empty id always computes and
// never stores.
func (c *Cache) Resolve(ctx context.Context, id, spec, mask string) (Entry, error) {
	if id != "" {
		e, err := c.Lookup(ctx, id)
		switch {
		case err == nil:
			c.logger.Debug("range cache hit", zap.String("id", id), zap.String("range", e.Range.String()))
			return e, nil
		case !errors.Is(err, ErrNotFound):
			return Entry{}, err
		}
	}

	r, err := addrrange.Parse(spec, mask)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Identifier: id, Range: r, HostCount: r.HostCount()}

	if _, err := c.Save(ctx, id, r, false); err != nil {
		return Entry{}, err
	}
	c.logger.Debug("range cache miss, computed",
		zap.String("id", id),
		zap.String("range", r.String()),
		zap.Int("hosts", e.HostCount),
	)
	return e, nil
}

// Lookup returns the stored entry for id or ErrNotFound.
func (c *Cache) Lookup(ctx context.Context, id string) (Entry, error) {
	raw, err := c.kv.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("read range %q: %w", id, err)
	}
	r, hosts, err := decode(raw)
	if err != nil {
		return Entry{}, fmt.Errorf("decode range %q: %w", id, err)
	}
	return Entry{Identifier: id, Range: r, HostCount: hosts}, nil
}

// Save stores r under id. It returns false without effect for an empty id.
// An existing entry is left untouched unless overwrite is set; that case
// still reports true.
func (c *Cache) Save(ctx context.Context, id string, r addrrange.Range, overwrite bool) (bool, error) {
	if id == "" {
		return false, nil
	}

	if !overwrite {
		_, err := c.kv.Get(ctx, id)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return false, fmt.Errorf("read range %q: %w", id, err)
		}
	}

	raw, err := encode(r)
	if err != nil {
		return false, err
	}
	if err := c.kv.Put(ctx, id, raw); err != nil {
		return false, fmt.Errorf("write range %q: %w", id, err)
	}
	c.logger.Info("range saved",
		zap.String("id", id),
		zap.String("range", r.String()),
		zap.Bool("overwrite", overwrite),
	)
	return true, nil
}

func encode(r addrrange.Range) ([]byte, error) {
	return json.Marshal(record{Intervals: r.Intervals(), HostCount: r.HostCount()})
}

func decode(raw []byte) (addrrange.Range, int, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return addrrange.Range{}, 0, err
	}
	r, err := addrrange.FromIntervals(rec.Intervals)
	if err != nil {
		return addrrange.Range{}, 0, err
	}
	if rec.HostCount != r.HostCount() {
		return addrrange.Range{}, 0, fmt.Errorf("stored host count %d does not match range %s (%d)",
			rec.HostCount, r, r.HostCount())
	}
	return r, rec.HostCount, nil
}
