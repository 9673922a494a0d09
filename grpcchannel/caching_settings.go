package grpcchannel

import (
	"context"
	"log/slog"

	"github.com/tripwire/grpcchannel/internal/settingscache"
)

// CachingServiceSettings wraps another ServiceSettings and records every
// successful resolution in a settingscache.Cache. When the wrapped source
// fails, it falls back to the last recorded value instead of propagating
// the failure, so a config backend outage does not prevent reconnecting to
// wherever a service was last known to be reachable.
type CachingServiceSettings struct {
	inner  ServiceSettings
	cache  *settingscache.Cache
	logger *slog.Logger
}

// NewCachingServiceSettings wraps inner with cache. A nil logger is
// replaced with slog.Default().
func NewCachingServiceSettings(inner ServiceSettings, cache *settingscache.Cache, logger *slog.Logger) *CachingServiceSettings {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingServiceSettings{inner: inner, cache: cache, logger: logger}
}

func (s *CachingServiceSettings) GetGRPCURL(ctx context.Context, serviceName string) (GRPCURL, error) {
	url, err := s.inner.GetGRPCURL(ctx, serviceName)
	if err == nil {
		if cacheErr := s.cache.Put(ctx, serviceName, url.URL, url.HostMetadata); cacheErr != nil {
			s.logger.Warn("grpcchannel: settings cache: write failed", slog.String("service", serviceName), slog.Any("error", cacheErr))
		}
		return url, nil
	}

	cachedURL, cachedHostMetadata, ok, cacheErr := s.cache.Get(ctx, serviceName)
	if cacheErr != nil {
		s.logger.Warn("grpcchannel: settings cache: read failed", slog.String("service", serviceName), slog.Any("error", cacheErr))
	}
	if !ok {
		return GRPCURL{}, err
	}

	s.logger.Warn("grpcchannel: settings source failed, falling back to cached connect url",
		slog.String("service", serviceName), slog.Any("error", err))
	return GRPCURL{URL: cachedURL, HostMetadata: cachedHostMetadata}, nil
}
