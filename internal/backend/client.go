package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-relay/internal/session"
)

// Client talks to the ticketing backend's REST and RPC endpoints through
// Fiber's HTTP client. Each call is a single attempt.
type Client struct {
	baseURL string
	doctype string
	timeout time.Duration
	logger  *zap.Logger
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL string
	Doctype string
	Timeout time.Duration
}

// NewClient constructs a backend client.
func NewClient(opts ClientOptions, logger *zap.Logger) *Client {
	if opts.Doctype == "" {
		opts.Doctype = "Request Tickets"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		doctype: opts.Doctype,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

// request describes one outbound call.
type request struct {
	op         string
	method     string
	url        string
	credential session.Credential
	json       any
	form       map[string]string
	multipart  map[string]string
	file       *FileUpload
}

// response is the part of an upstream answer the relay inspects.
type response struct {
	status      int
	contentType string
	body        []byte
	setCookies  []string
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) fetchError(op string) *FetchError {
	return &FetchError{Op: op, Status: r.status, Body: truncate(string(r.body), 200)}
}

// do performs req and reports any session identifier the backend sets to
// the sink carried by ctx.
func (c *Client) do(ctx context.Context, req request) (*response, error) {
	res, err := send(ctx, c.timeout, req)
	if err != nil {
		c.logger.Warn("backend call failed", zap.String("op", req.op), zap.Error(err))
		return nil, err
	}
	session.Notify(ctx, res.setCookies)
	c.logger.Debug("backend call",
		zap.String("op", req.op),
		zap.String("method", req.method),
		zap.Int("status", res.status),
		zap.Bool("credential", !req.credential.Empty()))
	return res, nil
}

// send executes req with a Fiber agent. The timeout is capped by the
// context deadline.
func send(ctx context.Context, timeout time.Duration, req request) (*response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Op: req.op, Err: err}
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
		if timeout <= 0 {
			return nil, &TransportError{Op: req.op, Err: context.DeadlineExceeded}
		}
	}

	agent := fiber.AcquireAgent()
	httpReq := agent.Request()
	httpReq.Header.SetMethod(req.method)
	httpReq.SetRequestURI(req.url)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if !req.credential.Empty() {
		agent.Set(fiber.HeaderCookie, req.credential.String())
	}

	switch {
	case req.json != nil:
		agent.JSON(req.json)
	case req.form != nil:
		args := fiber.AcquireArgs()
		for k, v := range req.form {
			args.Set(k, v)
		}
		agent.Form(args)
		fiber.ReleaseArgs(args)
	case req.multipart != nil || req.file != nil:
		args := fiber.AcquireArgs()
		for k, v := range req.multipart {
			args.Set(k, v)
		}
		if req.file != nil {
			agent.FileData(&fiber.FormFile{
				Fieldname: "file",
				Name:      req.file.FileName,
				Content:   req.file.Content,
			})
		}
		agent.MultipartForm(args)
		fiber.ReleaseArgs(args)
	}

	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return nil, &TransportError{Op: req.op, Err: err}
	}
	agent.Timeout(timeout)

	resp := fiber.AcquireResponse()
	defer fiber.ReleaseResponse(resp)
	agent.SetResponse(resp)

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, &TransportError{Op: req.op, Err: errs[0]}
	}

	res := &response{
		status:      status,
		contentType: string(resp.Header.ContentType()),
		body:        body,
	}
	resp.Header.VisitAllCookie(func(_, value []byte) {
		res.setCookies = append(res.setCookies, string(value))
	})
	return res, nil
}

func (c *Client) resourceURL(doctype string, name string) string {
	u := fmt.Sprintf("%s/api/resource/%s", c.baseURL, url.PathEscape(doctype))
	if name != "" {
		u += "/" + url.PathEscape(name)
	}
	return u
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/api/method/%s", c.baseURL, method)
}

// decodeData unwraps the resource envelope {"data": ...}.
func decodeData(op string, body []byte, v any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
