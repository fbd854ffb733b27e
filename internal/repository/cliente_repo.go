package repository

import (
	"context"
	"encoding/json"
	"time"

	"tools4care/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ClienteRepository resolves client display names.
type ClienteRepository interface {
	NombresClientes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type clienteRepo struct{ db *gorm.DB }

func NewClienteRepository(db *gorm.DB) ClienteRepository { return &clienteRepo{db: db} }

func (r *clienteRepo) NombresClientes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var clientes []model.Cliente
	if err := r.db.WithContext(ctx).Select("id", "nombre", "negocio").Where("id IN ?", ids).Find(&clientes).Error; err != nil {
		return nil, err
	}
	for _, c := range clientes {
		out[c.ID] = nombreVisible(c)
	}
	return out, nil
}

func nombreVisible(c model.Cliente) string {
	if c.Negocio != nil && *c.Negocio != "" {
		return c.Nombre + " (" + *c.Negocio + ")"
	}
	return c.Nombre
}

// ── Redis cache ──────────────────────────────────────────────────────────────

const clienteCachePrefix = "cliente:nombre:"

type clienteCache struct {
	next ClienteRepository
	rdb  *redis.Client
	ttl  time.Duration
}

// NewClienteCache puts a read-through Redis cache in front of next. Cache
// errors fall back to next and are never returned.
func NewClienteCache(next ClienteRepository, rdb *redis.Client, ttl time.Duration) ClienteRepository {
	return &clienteCache{next: next, rdb: rdb, ttl: ttl}
}

func (c *clienteCache) NombresClientes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = clienteCachePrefix + id.String()
	}

	var faltan []uuid.UUID
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		log.Warn().Err(err).Msg("cliente_cache: mget failed, reading database")
		faltan = ids
	} else {
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				faltan = append(faltan, ids[i])
				continue
			}
			var nombre string
			if json.Unmarshal([]byte(s), &nombre) != nil {
				faltan = append(faltan, ids[i])
				continue
			}
			out[ids[i]] = nombre
		}
	}
	if len(faltan) == 0 {
		return out, nil
	}

	nombres, err := c.next.NombresClientes(ctx, faltan)
	if err != nil {
		return nil, err
	}

	pipe := c.rdb.Pipeline()
	for id, nombre := range nombres {
		out[id] = nombre
		if b, err := json.Marshal(nombre); err == nil {
			pipe.Set(ctx, clienteCachePrefix+id.String(), b, c.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Msg("cliente_cache: populate failed")
	}
	return out, nil
}
