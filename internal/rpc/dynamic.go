package rpc

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultURLCacheTTL is how long a resolved service URL is reused.
const DefaultURLCacheTTL = 300 * time.Second

// URLCache holds resolved dynamic-service URLs keyed by module and version.
// One cache may be shared by every DynamicClient in the process.
type URLCache = expirable.LRU[string, string]

// NewURLCache creates a cache whose entries expire after ttl.
func NewURLCache(ttl time.Duration) *URLCache {
	if ttl <= 0 {
		ttl = DefaultURLCacheTTL
	}
	return expirable.NewLRU[string, string](64, nil, ttl)
}

// DynamicClient calls a service whose URL is resolved through the service wizard.
type DynamicClient struct {
	wizard  *Client
	module  string
	version string
	cache   *URLCache

	// endpoint carries the token and the shared http.Client; its own url is unused.
	endpoint *Client
}

// NewDynamicClient creates a client for module at version.
func NewDynamicClient(wizard *Client, module, version string, opts Options, cache *URLCache) *DynamicClient {
	if cache == nil {
		cache = NewURLCache(DefaultURLCacheTTL)
	}
	if version == "" {
		version = "release"
	}
	return &DynamicClient{
		wizard:   wizard,
		module:   module,
		version:  version,
		cache:    cache,
		endpoint: NewClient("", opts),
	}
}

// Module returns the module name used for lookup and method prefixes.
func (d *DynamicClient) Module() string {
	return d.module
}

func (d *DynamicClient) cacheKey() string {
	return d.module + "@" + d.version
}

type serviceStatus struct {
	URL string `json:"url"`
}

// lookup asks the service wizard for the module's current URL and caches it.
func (d *DynamicClient) lookup(ctx context.Context) (string, error) {
	var status serviceStatus
	err := d.wizard.Call(ctx, "ServiceWizard.get_service_status",
		[]any{map[string]string{"module_name": d.module, "version": d.version}}, &status)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", d.module, err)
	}
	if status.URL == "" {
		return "", fmt.Errorf("lookup %s: service wizard returned no url", d.module)
	}
	d.cache.Add(d.cacheKey(), status.URL)
	glog.V(1).Infof("[rpc] resolved %s (%s) to %s", d.module, d.version, status.URL)
	return status.URL, nil
}

// Call invokes Module.method. When a cached URL yields a server error, the
// URL is looked up again and the call retried once.
func (d *DynamicClient) Call(ctx context.Context, method string, params []any, result any) error {
	url, cached := d.cache.Get(d.cacheKey())
	if !cached {
		var err error
		if url, err = d.lookup(ctx); err != nil {
			return err
		}
	}

	fullMethod := d.module + "." + method
	err := d.call(ctx, url, fullMethod, params, result)
	var serverErr *ServerError
	if err == nil || !cached || !stderrors.As(err, &serverErr) {
		return err
	}

	glog.V(1).Infof("[rpc] %s failed at cached url %s, re-resolving: %v", fullMethod, url, err)
	d.cache.Remove(d.cacheKey())
	if url, err = d.lookup(ctx); err != nil {
		return err
	}
	return d.call(ctx, url, fullMethod, params, result)
}

func (d *DynamicClient) call(ctx context.Context, url, method string, params []any, result any) error {
	return d.endpoint.callAt(ctx, strings.TrimRight(strings.TrimSpace(url), "/"), method, params, result)
}
