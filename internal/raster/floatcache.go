package raster

import (
	"sync"

	"github.com/geodata/ctb-tile/internal/cog"
)

// floatTileKey identifies a decoded float32 tile within one IFD level.
type floatTileKey struct {
	level, col, row int
}

type floatTileEntry struct {
	data  []float32
	width int
}

// floatTileCache is an LRU-like cache for decoded float32 elevation tiles:
// a bounded map plus an insertion-order slice, evicting the oldest entry
// once maxSize is exceeded. One cache per CogSource, one source per reader.
type floatTileCache struct {
	mu      sync.Mutex
	cache   map[floatTileKey]floatTileEntry
	order   []floatTileKey
	maxSize int
}

func newFloatTileCache(maxEntries int) *floatTileCache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &floatTileCache{
		cache:   make(map[floatTileKey]floatTileEntry, maxEntries),
		maxSize: maxEntries,
	}
}

// get returns the decoded tile at (level,col,row), reading and decoding it
// on first access. Safe for concurrent use by multiple tile workers sharing
// one CogSource.
func (c *floatTileCache) get(reader *cog.Reader, level, col, row int) ([]float32, int, error) {
	key := floatTileKey{level, col, row}

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return entry.data, entry.width, nil
	}
	c.mu.Unlock()

	data, w, _, err := reader.ReadFloatTile(level, col, row)
	if err != nil {
		return nil, 0, err
	}
	if data == nil {
		data = make([]float32, w*w)
	}

	c.mu.Lock()
	for len(c.cache) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, oldest)
	}
	c.cache[key] = floatTileEntry{data: data, width: w}
	c.order = append(c.order, key)
	c.mu.Unlock()
	return data, w, nil
}
