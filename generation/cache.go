package generation

import (
	"strings"
	"sync"
)

// cache は正規化プロンプト+物理フィンガープリントをキーとする完全一致キャッシュです。
type cache struct {
	mu    sync.RWMutex
	items map[string]Item
}

func newCache() *cache {
	return &cache{items: make(map[string]Item)}
}

// cacheKey はプロンプトを正規化しフィンガープリントと連結します。
// 物理が変わると同じプロンプトでも別エントリになります。
func cacheKey(prompt, fingerprint string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
	return normalized + "|" + fingerprint
}

// Get はヒットした場合に新しいIDを持つコピーを返します。
func (c *cache) Get(key string) (*Item, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	copied := item.WithNewID()
	copied.Provenance = ProvenanceCache
	return copied, true
}

func (c *cache) Put(key string, item *Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = *item
}

func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
