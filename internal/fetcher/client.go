package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/scheme"

	"github.com/kubeadapt/kubeviz/internal/config"
	"github.com/kubeadapt/kubeviz/internal/convert"
	vizerrors "github.com/kubeadapt/kubeviz/internal/errors"
	"github.com/kubeadapt/kubeviz/internal/observability"
)

// Resource names used for metric labels and error components.
const (
	ResourceNamespaces = "namespaces"
	ResourcePods       = "pods"
	ResourceNodes      = "nodes"
)

// Client issues GETs against the cluster API and decodes the list
// responses. It does not retry or cache; the poll loop's next tick is
// the retry.
type Client struct {
	httpClient     *http.Client
	config         *config.Config
	metrics        *observability.Metrics
	errorCollector *vizerrors.ErrorCollector
	decoder        runtime.Decoder
}

// NewClient creates a fetcher Client with middleware applied.
// metrics and errCollector may be nil.
func NewClient(cfg *config.Config, metrics *observability.Metrics, errCollector *vizerrors.ErrorCollector) *Client {
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: WithUserAgent(UserAgent, WithLogging(nil, base)),
		},
		config:         cfg,
		metrics:        metrics,
		errorCollector: errCollector,
		decoder:        scheme.Codecs.UniversalDeserializer(),
	}
}

// FetchNamespaces lists namespace names.
func (c *Client) FetchNamespaces(ctx context.Context) ([]string, error) {
	list := &corev1.NamespaceList{}
	if err := c.fetch(ctx, ResourceNamespaces, c.config.NamespacesURL, list); err != nil {
		return nil, err
	}
	return convert.NamespaceNames(list), nil
}

// FetchPods lists the pods of one namespace.
func (c *Client) FetchPods(ctx context.Context, namespace string) (*corev1.PodList, error) {
	list := &corev1.PodList{}
	u := c.config.NamespacesURL + url.PathEscape(namespace) + "/pods"
	if err := c.fetch(ctx, ResourcePods, u, list); err != nil {
		return nil, err
	}
	return list, nil
}

// FetchNodes lists all cluster nodes.
func (c *Client) FetchNodes(ctx context.Context) (*corev1.NodeList, error) {
	list := &corev1.NodeList{}
	if err := c.fetch(ctx, ResourceNodes, c.config.NodesURL, list); err != nil {
		return nil, err
	}
	return list, nil
}

// fetch GETs u and decodes the body into into. Failures come back as
// *errors.VizError and are recorded in metrics and the error collector.
func (c *Client) fetch(ctx context.Context, resource, u string, into runtime.Object) error {
	start := time.Now()
	err := c.doFetch(ctx, resource, u, into)

	component := "fetcher." + resource
	if c.metrics != nil {
		c.metrics.FetchDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
		if err != nil {
			c.metrics.FetchErrorsTotal.WithLabelValues(resource, string(vizerrors.CodeOf(err))).Inc()
		}
	}
	if c.errorCollector != nil {
		if ve, ok := err.(*vizerrors.VizError); ok {
			c.errorCollector.Report(*ve)
		} else if err == nil {
			for _, code := range vizerrors.Codes {
				if code.Hard() {
					c.errorCollector.Resolve(code, component)
				}
			}
		}
	}
	return err
}

func (c *Client) doFetch(ctx context.Context, resource, u string, into runtime.Object) error {
	component := "fetcher." + resource

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return vizerrors.Unreachable(component, fmt.Errorf("creating request for %s: %w", u, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return vizerrors.Unreachable(component, err)
	}
	defer drainAndClose(resp.Body)

	cr := NewCountingReader(resp.Body)
	body, err := io.ReadAll(cr)
	if c.metrics != nil {
		c.metrics.UpstreamBytes.WithLabelValues(resource).Add(float64(cr.Count()))
	}
	if err != nil {
		return vizerrors.Unreachable(component, fmt.Errorf("reading response from %s: %w", u, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return vizerrors.MalformedWithSummary(component, malformedSummary(resource),
			fmt.Errorf("unexpected status %s from %s", resp.Status, u),
			truncate(body, c.config.MaxBodyLogBytes))
	}

	if err := decodeInto(c.decoder, body, into); err != nil {
		return vizerrors.MalformedWithSummary(component, malformedSummary(resource), err,
			truncate(body, c.config.MaxBodyLogBytes))
	}
	return nil
}

func malformedSummary(resource string) string {
	if resource == ResourceNamespaces {
		return "Unable to fetch namespaces from k8s response."
	}
	return "Unable to parse and extract information from k8s response."
}

// decodeInto decodes a list body. Bodies without kind/apiVersion are
// decoded as into's kind; bodies of any other kind (e.g. a Status) fail,
// as do bodies without an items array.
func decodeInto(decoder runtime.Decoder, body []byte, into runtime.Object) error {
	gvk := listKind(into)
	obj, actual, err := decoder.Decode(body, &gvk, into)
	if err != nil {
		return err
	}
	if obj != into {
		return fmt.Errorf("unexpected object kind %q, want %q", actual.Kind, gvk.Kind)
	}
	if !hasItems(into) {
		return fmt.Errorf("%s has no items field", gvk.Kind)
	}
	return nil
}

// hasItems reports whether a decoded list carried an items array.
// An empty array decodes to a non-nil slice; a missing one stays nil.
func hasItems(obj runtime.Object) bool {
	switch l := obj.(type) {
	case *corev1.PodList:
		return l.Items != nil
	case *corev1.NodeList:
		return l.Items != nil
	case *corev1.NamespaceList:
		return l.Items != nil
	default:
		return true
	}
}

func listKind(obj runtime.Object) schema.GroupVersionKind {
	v1 := corev1.SchemeGroupVersion
	switch obj.(type) {
	case *corev1.PodList:
		return v1.WithKind("PodList")
	case *corev1.NodeList:
		return v1.WithKind("NodeList")
	case *corev1.NamespaceList:
		return v1.WithKind("NamespaceList")
	default:
		return schema.GroupVersionKind{}
	}
}

// truncate returns body as a string of at most limit bytes.
// A limit of 0 keeps the full body.
func truncate(body []byte, limit int) string {
	if limit <= 0 || len(body) <= limit {
		return string(body)
	}
	return fmt.Sprintf("%s... (%d bytes truncated)", body[:limit], len(body)-limit)
}
