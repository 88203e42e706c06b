/*
Package httptarget implements delegated call target which forwards the
calls to an external protocol service as JSON POST requests.

Request body is the JSON form of the delegated call, the service must
respond with 2xx status for the call to be successful. Error response
may carry JSON body {"error": "message"} which is then included in the
error returned to the endpoint.
*/
package httptarget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/photon-ccm/photon/endpoint"
	"github.com/photon-ccm/photon/types"
)

const DefaultTimeout = 30 * time.Second

// maximum size of the error response body which is read
const maxErrBody = 4096

type (
	Client struct {
		id     types.ProtocolID
		url    string
		client *http.Client
		header http.Header
	}

	Option func(*Client)

	// Request is the body of the POST request sent to the service.
	Request struct {
		endpoint.DelegatedCall
		FunctionSelector types.Bytes `json:"functionSelector"`
	}

	errorResponse struct {
		Err string `json:"error"`
	}
)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithHeader adds header which is sent with every request (ie API key).
func WithHeader(key, value string) Option {
	return func(cl *Client) { cl.header.Add(key, value) }
}

func New(id types.ProtocolID, serviceURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("parsing service URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported service URL scheme %q", u.Scheme)
	}
	c := &Client{
		id:     id,
		url:    u.String(),
		client: &http.Client{Timeout: DefaultTimeout},
		header: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) ProtocolID() types.ProtocolID { return c.id }

func (c *Client) URL() string { return c.url }

func (c *Client) DelegatedCall(ctx context.Context, call endpoint.DelegatedCall) error {
	body, err := json.Marshal(Request{DelegatedCall: call, FunctionSelector: call.Selector.Bytes()})
	if err != nil {
		return fmt.Errorf("encoding delegated call: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	rsp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling protocol service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, rsp.Body)
		_ = rsp.Body.Close()
	}()

	if rsp.StatusCode >= 200 && rsp.StatusCode <= 299 {
		return nil
	}
	return decodeError(rsp)
}

func decodeError(rsp *http.Response) error {
	err := fmt.Errorf("protocol service responded with %s", rsp.Status)
	b, rErr := io.ReadAll(io.LimitReader(rsp.Body, maxErrBody))
	if rErr != nil {
		return errors.Join(err, rErr)
	}
	var er errorResponse
	if json.Unmarshal(b, &er) == nil && er.Err != "" {
		return fmt.Errorf("%w: %s", err, er.Err)
	}
	return err
}
