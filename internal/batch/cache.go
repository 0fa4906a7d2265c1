package batch

import (
	"container/list"
	"sync"

	"github.com/kestrel-audio/tagcore/internal/format"
	"github.com/kestrel-audio/tagcore/internal/tagerr"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

// Default cache budgets (spec.md §4.7): 64 MiB of general tag payload, plus
// a stricter 16 MiB budget that only picture data above 256 KiB counts
// against. No cache library appears anywhere in the retrieved pack, so
// this is built on container/list (LRU order) and sync.RWMutex (the
// many-readers/single-writer discipline spec.md §5 asks for) by necessity.
const (
	DefaultGeneralBudget = 64 * 1024 * 1024
	DefaultPictureBudget = 16 * 1024 * 1024
	bigPictureThreshold  = 256 * 1024
)

// cacheKey identifies a cached decode by the file identity spec.md §4.7
// pins caching to, not by path alone: a changed size or mtime is a miss.
type cacheKey struct {
	path    string
	size    int64
	mtimeNs int64
}

type cacheEntry struct {
	key          cacheKey
	decoded      *format.Decoded
	generalCost  int
	pictureCost  int
}

// cache is a single LRU list ordered by recency; eviction walks from the
// tail until both budgets are satisfied. Splitting general/picture payload
// into two independently-budgeted pools but a single eviction order is a
// simplification over two fully separate LRU lists — see DESIGN.md.
type cache struct {
	mu             sync.RWMutex
	generalBudget  int
	pictureBudget  int
	generalUsed    int
	pictureUsed    int
	order          *list.List // front = most recently used
	index          map[cacheKey]*list.Element
	generationTick uint64 // bumped on Clear, invalidates the identical-input fast path
}

func newCache(generalBudget, pictureBudget int) *cache {
	return &cache{
		generalBudget: generalBudget,
		pictureBudget: pictureBudget,
		order:         list.New(),
		index:         make(map[cacheKey]*list.Element),
	}
}

// lookup reports whether key is cached, checking the index under the read
// lock only (the "many lookups" half of the reader-writer discipline), and
// promotes a hit to the front of the LRU order.
func (c *cache) lookup(key cacheKey) (*format.Decoded, bool) {
	c.mu.RLock()
	el, ok := c.index[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	c.promote(el)
	return el.Value.(*cacheEntry).decoded, true
}

// promote is the single-writer half: move el to the front of the LRU order.
func (c *cache) promote(el *list.Element) {
	c.mu.Lock()
	c.order.MoveToFront(el)
	c.mu.Unlock()
}

// insert stores decoded under key, evicting LRU entries as needed to stay
// within budget.
func (c *cache) insert(key cacheKey, decoded *format.Decoded) {
	generalCost, pictureCost := estimateCost(decoded)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		old := el.Value.(*cacheEntry)
		c.generalUsed -= old.generalCost
		c.pictureUsed -= old.pictureCost
		c.order.Remove(el)
		delete(c.index, key)
	}

	entry := &cacheEntry{key: key, decoded: decoded, generalCost: generalCost, pictureCost: pictureCost}
	el := c.order.PushFront(entry)
	c.index[key] = el
	c.generalUsed += generalCost
	c.pictureUsed += pictureCost

	for (c.generalUsed > c.generalBudget || c.pictureUsed > c.pictureBudget) && c.order.Len() > 1 {
		c.evictOldestLocked()
	}
}

// evictOldestLocked removes the least-recently-used entry. Caller holds c.mu.
func (c *cache) evictOldestLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	e := back.Value.(*cacheEntry)
	c.generalUsed -= e.generalCost
	c.pictureUsed -= e.pictureCost
	c.order.Remove(back)
	delete(c.index, e.key)
}

// clear drops every cached entry and invalidates the identical-input fast
// path (spec.md §4.7's clear_cache).
func (c *cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.index = make(map[cacheKey]*list.Element)
	c.generalUsed = 0
	c.pictureUsed = 0
	c.generationTick++
}

func (c *cache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generationTick
}

// estimateCost splits decoded's tag payload into the general budget and
// the stricter big-picture budget (only pictures above 256 KiB count
// against the latter, per spec.md §4.7).
func estimateCost(decoded *format.Decoded) (general int, picture int) {
	if decoded == nil || decoded.Collection == nil {
		return 0, 0
	}
	decoded.Collection.Each(func(_ string, v tagmodel.Value) {
		switch v.Kind {
		case tagmodel.KindText:
			for _, t := range v.Text {
				general += len(t)
			}
		case tagmodel.KindPicture:
			for _, p := range v.Pictures {
				if len(p.Data) > bigPictureThreshold {
					picture += len(p.Data)
				} else {
					general += len(p.Data)
				}
			}
		case tagmodel.KindBinary:
			for _, b := range v.Binary {
				general += len(b)
			}
		case tagmodel.KindPair:
			general += 8 * len(v.Pairs)
		}
	})
	return general, picture
}

// cloneDecoded deep-copies a cached result so a cache hit hands the caller
// an independent value (spec.md §4.7: "a hit returns a deep copy").
func cloneDecoded(d *format.Decoded) *format.Decoded {
	if d == nil {
		return nil
	}
	out := &format.Decoded{Info: d.Info}
	if d.Collection != nil {
		out.Collection = d.Collection.Clone()
	}
	if d.Diagnostics != nil {
		out.Diagnostics = append([]tagerr.Diagnostic(nil), d.Diagnostics...)
	}
	return out
}
