package cache

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type Cache interface {
	Reset()
}

type entryCall struct {
	once  sync.Once
	table types.EntryTable
	err   error
}

// EntryCache memoizes entry tables by strategy key over one series. It is safe for
// concurrent use and generates each key at most once, errors included.
type EntryCache struct {
	mu     sync.Mutex
	calls  map[string]*entryCall
	hits   int
	misses int
}

func NewEntryCache() *EntryCache {
	return &EntryCache{
		calls: make(map[string]*entryCall),
	}
}

// Key identifies an entry strategy by name and params. Map keys are marshalled in
// sorted order, so equal params give equal keys.
func Key(name string, params map[string]any) string {
	if len(params) == 0 {
		return name
	}

	encoded, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s%v", name, params)
	}

	return name + string(encoded)
}

// GetOrGenerate returns a copy of the table cached under key, calling generate on the
// first request. Concurrent requests for the same key wait for the first one.
func (c *EntryCache) GetOrGenerate(key string, generate func() (types.EntryTable, error)) (types.EntryTable, error) {
	c.mu.Lock()
	call, ok := c.calls[key]
	if !ok {
		call = &entryCall{}
		c.calls[key] = call
		c.misses++
	} else {
		c.hits++
	}
	c.mu.Unlock()

	call.once.Do(func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				call.err = errors.Newf(errors.ErrCodeSignalProviderFailed, "entry table %s panicked: %v", key, recovered)
			}
		}()

		call.table, call.err = generate()
	})

	if call.err != nil {
		return types.EntryTable{}, call.err
	}

	return copyTable(call.table), nil
}

// Stats returns the hit and miss counts since the last Reset.
func (c *EntryCache) Stats() (hits int, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hits, c.misses
}

// Len returns the number of cached keys.
func (c *EntryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.calls)
}

// Reset implements cache.Cache.
func (c *EntryCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = make(map[string]*entryCall)
	c.hits = 0
	c.misses = 0
}

func copyTable(table types.EntryTable) types.EntryTable {
	columns := make(map[string][]float64, len(table.Columns))
	for name, values := range table.Columns {
		columns[name] = slices.Clone(values)
	}

	return types.EntryTable{
		Rows:    slices.Clone(table.Rows),
		Columns: columns,
	}
}
