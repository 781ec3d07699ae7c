package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"

	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
)

// Client talks to a relay Server. It implements domain.Directory and
// domain.Transport; an empty base URL yields an unconfigured client.
type Client struct {
	base   string
	http   *resty.Client
	dialer *websocket.Dialer
	logger log.Logger
}

// NewClient returns a client for the relay at base.
func NewClient(base string, timeout time.Duration, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	base = strings.TrimRight(base, "/")
	cl := resty.New().SetBaseURL(base).SetTimeout(timeout)
	cl.SetHeader("Content-Type", "application/json")
	cl.SetHeader("Accept", "application/json")
	cl.SetHeader("User-Agent", "cyphertext/1.0")
	return &Client{
		base:   base,
		http:   cl,
		dialer: &websocket.Dialer{HandshakeTimeout: timeout},
		logger: logger,
	}
}

// HTTPClient exposes the underlying client so tests can intercept it.
func (c *Client) HTTPClient() *http.Client { return c.http.GetClient() }

// Configured reports whether a relay URL was supplied.
func (c *Client) Configured() bool { return c.base != "" }

// GetPublicKey fetches participant's key; a 404 means none was published.
func (c *Client) GetPublicKey(ctx context.Context, participant domain.ParticipantID) (string, bool, error) {
	var rec domain.PublicKeyRecord
	var apiErr ApiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("participant", participant.String()).
		SetResult(&rec).
		SetError(&apiErr).
		Get("/directory/{participant}")
	if err != nil {
		return "", false, &domaintypes.TransportError{Op: "get public key", Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", false, nil
	}
	if err := handleError(resp, &apiErr); err != nil {
		return "", false, &domaintypes.TransportError{Op: "get public key", Err: err}
	}
	return rec.PublicKey, true, nil
}

// Publish stores or overwrites participant's key.
func (c *Client) Publish(ctx context.Context, participant domain.ParticipantID, publicKey string) error {
	var apiErr ApiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("participant", participant.String()).
		SetBody(publishKeyRequest{PublicKey: publicKey}).
		SetError(&apiErr).
		Put("/directory/{participant}")
	if err != nil {
		return &domaintypes.TransportError{Op: "publish key", Err: err}
	}
	if err := handleError(resp, &apiErr); err != nil {
		return &domaintypes.TransportError{Op: "publish key", Err: err}
	}
	return nil
}

// Append posts envelope to the conversation log.
func (c *Client) Append(ctx context.Context, conversationID domain.ConversationID, envelope domain.Envelope) error {
	var apiErr ApiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("conversation", conversationID.String()).
		SetBody(envelope).
		SetError(&apiErr).
		Post("/conversations/{conversation}/envelopes")
	if err != nil {
		return &domaintypes.TransportError{Op: "append envelope", Err: err}
	}
	if err := handleError(resp, &apiErr); err != nil {
		return &domaintypes.TransportError{Op: "append envelope", Err: err}
	}
	return nil
}

// History fetches the conversation log.
func (c *Client) History(ctx context.Context, conversationID domain.ConversationID) ([]domain.Envelope, error) {
	var envs []domain.Envelope
	var apiErr ApiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("conversation", conversationID.String()).
		SetResult(&envs).
		SetError(&apiErr).
		Get("/conversations/{conversation}/envelopes")
	if err != nil {
		return nil, &domaintypes.TransportError{Op: "history", Err: err}
	}
	if err := handleError(resp, &apiErr); err != nil {
		return nil, &domaintypes.TransportError{Op: "history", Err: err}
	}
	return envs, nil
}

// Subscribe opens the relay websocket and calls fn for every pushed
// envelope until the returned function is called or ctx ends.
func (c *Client) Subscribe(ctx context.Context, fn func(domain.Envelope)) (func(), error) {
	u, err := subscribeURL(c.base)
	if err != nil {
		return nil, &domaintypes.TransportError{Op: "subscribe", Err: err}
	}
	conn, resp, err := c.dialer.DialContext(ctx, u, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, &domaintypes.TransportError{Op: "subscribe", Err: err}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, net.ErrClosed) {
					level.Debug(c.logger).Log("msg", "subscription ended", "err", err)
				}
				return
			}
			f, err := decodeFrame(b)
			if err != nil || f.Type != frameEnvelope || f.Envelope == nil {
				level.Warn(c.logger).Log("msg", "dropping malformed frame", "err", err)
				continue
			}
			fn(*f.Envelope)
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()
	return unsubscribe, nil
}

func subscribeURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported relay scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/subscribe"
	return u.String(), nil
}

func handleError(resp *resty.Response, apiErr *ApiError) error {
	if !resp.IsError() {
		return nil
	}
	if apiErr.Message != "" {
		return *apiErr
	}
	return ApiError{Code: resp.StatusCode(), Message: resp.Status()}
}

var _ domain.Relay = (*Client)(nil)
