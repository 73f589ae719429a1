package client

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// NewCachingHTTPClient creates an HTTP client with disk-based caching.
// Responses from cacheable endpoints (the public status JSON and JWKS documents,
// which carry Cache-Control and ETag headers) are served from the cache while fresh
// and revalidated with If-None-Match afterwards.
func NewCachingHTTPClient(cacheDir string) *http.Client {
	if cacheDir == "" {
		return NewInMemoryCachingHTTPClient()
	}

	// Use disk-based cache for persistence across CLI invocations
	cache := diskcache.New(cacheDir)
	transport := httpcache.NewTransport(cache)

	return &http.Client{
		Transport: transport,
	}
}

// NewInMemoryCachingHTTPClient creates an HTTP client with in-memory caching only.
func NewInMemoryCachingHTTPClient() *http.Client {
	return &http.Client{
		Transport: httpcache.NewTransport(httpcache.NewMemoryCache()),
	}
}

// FromCache reports whether httpcache served the response from its cache.
func FromCache(resp *http.Response) bool {
	return resp.Header.Get(httpcache.XFromCache) == "1"
}
