package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/room-booking-sync/internal/config"
	"github.com/iliyamo/room-booking-sync/internal/service"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom builds a stable cache key honoring prefix/strategy. When the
// request carries a numeric cfg.KeyParam the value is kept in clear, as in
// "avail:room_id=42:<sha1>", so InvalidateRoom can find every entry of one
// room with a single pattern.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	route := c.Path()
	query := r.URL.RawQuery

	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", route}
	case "method_route":
		parts = []string{"method", r.Method, "route", route}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", route, "q", query}
	default: // "route_query"
		parts = []string{"route", route, "q", query}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))

	if cfg.KeyParam != "" {
		v := c.QueryParam(cfg.KeyParam)
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return fmt.Sprintf("%s:%s=%d:%x", cfg.Prefix, cfg.KeyParam, n, sum[:])
		}
	}
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// roomKeyPattern matches every cache entry keyed on the given room.
func roomKeyPattern(cfg config.CacheConfig, productID int64) string {
	return fmt.Sprintf("%s:%s=%d:*", cfg.Prefix, cfg.KeyParam, productID)
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// NewRedisCache caches successful availability responses (headers + body)
// in Redis. Only 200 responses are stored; errors such as an unknown room
// are always recomputed. With caching disabled or no client it is a
// pass-through.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			// A truncated body must not be served later as if it were whole.
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				_ = rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err()
			}
			return nil
		}
	}
}

// CacheInvalidator drops cached availability of a room when a booking for
// it is created. It implements service.AuditSink.
type CacheInvalidator struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *zap.Logger
}

// NewCacheInvalidator returns nil when caching is disabled; a nil
// *CacheInvalidator records nothing.
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) *CacheInvalidator {
	if !cfg.Enabled || rdb == nil || cfg.KeyParam == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CacheInvalidator{cfg: cfg, rdb: rdb, log: log.Named("cache")}
}

// Record implements service.AuditSink.
func (ci *CacheInvalidator) Record(ctx context.Context, ev service.AuditEvent) {
	if ci == nil || ev.Type != service.EventBookingCreated || ev.ProductID == 0 {
		return
	}
	n, err := ci.InvalidateRoom(ctx, ev.ProductID)
	if err != nil {
		ci.log.Warn("cache invalidation failed", zap.Int64("product_id", ev.ProductID), zap.Error(err))
		return
	}
	if n > 0 {
		ci.log.Debug("cache invalidated", zap.Int64("product_id", ev.ProductID), zap.Int("keys", n))
	}
}

// InvalidateRoom deletes every cached response for the room sold as
// productID and reports how many keys were removed.
func (ci *CacheInvalidator) InvalidateRoom(ctx context.Context, productID int64) (int, error) {
	pattern := roomKeyPattern(ci.cfg, productID)
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := ci.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := ci.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
