package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

type FastHTTPCaller struct {
	Client  *fasthttp.Client
	Timeout time.Duration
}

var DefaultFastHTTPCaller = &FastHTTPCaller{
	Client: &fasthttp.Client{
		ReadBufferSize:  16 * 1024,
		MaxConnsPerHost: 1024,
	},
	Timeout: 30 * time.Second,
}

func (a FastHTTPCaller) Call(url string, params RequestParams) (*fasthttp.Request, *fasthttp.Response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	req.Header.SetMethod(params.Method)
	for key, value := range params.Headers {
		req.Header.Set(key, value)
	}

	switch params.Method {
	case fasthttp.MethodGet, fasthttp.MethodOptions:
		req.SetRequestURI(url)
		for key, value := range params.Query {
			req.URI().QueryArgs().Add(key, value)
		}
	case fasthttp.MethodPost:
		req.SetBodyString(strings.Join(params.BodyString, "&"))
		req.SetRequestURI(url)
	default:
		return nil, nil, fmt.Errorf("unsupported method: %s", params.Method)
	}

	timeout := a.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var err error
	if params.Redirects > 0 {
		err = a.Client.DoRedirects(req, resp, params.Redirects)
	} else {
		err = a.Client.DoTimeout(req, resp, timeout)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("request error: %w", err)
	}

	return req, resp, nil
}

type RequestParams struct {
	Method     string            // "GET", "OPTIONS" or "POST"
	Redirects  int               // Number of redirects to follow
	Headers    map[string]string // Common headers for both GET and POST
	Query      map[string]string // Query parameters for GET
	BodyString []string          // Body of the request for POST
}

func ReleaseRequestResources(request *fasthttp.Request, response *fasthttp.Response) {
	if request != nil {
		fasthttp.ReleaseRequest(request)
	}
	if response != nil {
		fasthttp.ReleaseResponse(response)
	}
}
