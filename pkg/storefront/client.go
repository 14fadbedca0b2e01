// Package storefront is a Go client for the HarvestCart API.
//
// List responses are accepted both in the {"success":true,"data":{...}}
// envelope and as a bare JSON array, which older deployments return.
package storefront

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Client calls the API over HTTP.
type Client struct {
	base     *url.URL
	http     *http.Client
	adminKey string
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	http           *http.Client
	adminKey       string
	tracerProvider trace.TracerProvider
}

// WithHTTPClient sets the underlying client. Its transport is wrapped with
// otelhttp.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.http = c }
}

// WithAdminKey sends key in the api_key header of admin calls.
func WithAdminKey(key string) Option {
	return func(o *clientOptions) { o.adminKey = key }
}

// WithTracerProvider sets the tracer provider for client spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *clientOptions) { o.tracerProvider = tp }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}

	o := clientOptions{http: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}

	hc := *o.http
	transport := hc.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	var otelOpts []otelhttp.Option
	if o.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(o.tracerProvider))
	}
	hc.Transport = otelhttp.NewTransport(transport, otelOpts...)

	return &Client{base: u, http: &hc, adminKey: o.adminKey}, nil
}

// Error is a non-2xx response.
type Error struct {
	StatusCode int
	Kind       string
	Message    string
	Fields     map[string]string
}

func (e *Error) Error() string {
	if e.Kind == "" {
		return "storefront: " + http.StatusText(e.StatusCode)
	}
	return "storefront: " + e.Kind + ": " + e.Message
}

type call struct {
	method string
	path   string
	query  url.Values
	body   []byte
	admin  bool
}

// do performs c and returns the response body of a 2xx response.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	u := *c.base
	u.Path += cl.path
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.admin && c.adminKey != "" {
		req.Header.Set("api_key", c.adminKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", cl.method, cl.path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode/100 != 2 {
		return nil, decodeError(resp.StatusCode, data)
	}
	return data, nil
}

// decodeError extracts the failure envelope. Bodies that do not carry one
// still yield an *Error with the status code.
func decodeError(status int, data []byte) error {
	e := &Error{StatusCode: status}
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return e
	}
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "error" || d.Next() != jx.Object {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "kind":
				e.Kind, err = d.Str()
			case "message":
				e.Message, err = d.Str()
			case "fields":
				e.Fields = map[string]string{}
				err = d.Obj(func(d *jx.Decoder, name string) error {
					v, err := d.Str()
					e.Fields[name] = v
					return err
				})
			default:
				err = d.Skip()
			}
			return err
		})
	})
	return e
}

// unwrap returns the decoder positioned at the payload stored under key. It
// accepts the envelope, a bare {key: ...} object, or the bare payload.
func unwrap(data []byte, key string) (*jx.Decoder, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return d, nil
	}

	var payload jx.Raw
	err := d.Obj(func(d *jx.Decoder, k string) error {
		switch k {
		case "data":
			if d.Next() != jx.Object {
				return d.Skip()
			}
			return d.Obj(func(d *jx.Decoder, k string) error {
				if k != key {
					return d.Skip()
				}
				raw, err := d.Raw()
				payload = raw
				return err
			})
		case key:
			raw, err := d.Raw()
			payload = raw
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}
	if payload == nil {
		return nil, errors.Errorf("response has no %q payload", key)
	}
	return jx.DecodeBytes(payload), nil
}

// decodeList decodes the array payload under key.
func decodeList[T any](data []byte, key string, dec func(*jx.Decoder) (T, error)) ([]T, error) {
	d, err := unwrap(data, key)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := d.Arr(func(d *jx.Decoder) error {
		v, err := dec(d)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "decode %s", key)
	}
	return out, nil
}

func decodeOne[T any](data []byte, key string, dec func(*jx.Decoder) (T, error)) (T, error) {
	d, err := unwrap(data, key)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := dec(d)
	if err != nil {
		return v, errors.Wrapf(err, "decode %s", key)
	}
	return v, nil
}
