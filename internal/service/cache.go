// cache.go — LRU-кэш разрешений ролей с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша разрешений.
var (
	resolveCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ps_resolve_cache_hits_total",
		Help: "Общее количество попаданий в кэш разрешений ролей.",
	})
	resolveCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ps_resolve_cache_misses_total",
		Help: "Общее количество промахов кэша разрешений ролей.",
	})
)

// resolution — закэшированный результат разрешения роли.
// Found=false кэширует и отсутствие роли: повторный промах по той же
// роли не перечитывает хранилище до инвалидации или истечения TTL.
type resolution struct {
	Ref   string
	Name  string
	Found bool
}

// ResolveCache — LRU-кэш разрешений ролей с автоматическим TTL.
type ResolveCache struct {
	cache *expirable.LRU[string, resolution]
}

// NewResolveCache создаёт кэш с указанным размером и TTL.
func NewResolveCache(maxSize int, ttl time.Duration) *ResolveCache {
	return &ResolveCache{
		cache: expirable.NewLRU[string, resolution](maxSize, nil, ttl),
	}
}

// Get возвращает разрешение роли из кэша.
func (c *ResolveCache) Get(roleID string) (resolution, bool) {
	val, ok := c.cache.Get(roleID)
	if ok {
		resolveCacheHitsTotal.Inc()
		return val, true
	}
	resolveCacheMissesTotal.Inc()
	return resolution{}, false
}

// Set сохраняет разрешение роли.
func (c *ResolveCache) Set(roleID string, res resolution) {
	c.cache.Add(roleID, res)
}

// Purge сбрасывает кэш целиком. Вызывается после любой мутации
// хранилища или аннотаций: мутация может изменить исход любой роли.
func (c *ResolveCache) Purge() {
	c.cache.Purge()
}
