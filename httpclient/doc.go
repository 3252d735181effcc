// Package httpclient sends request specifications produced by the sandbox.
//
// Client.Do validates the URL, encodes the body (strings verbatim,
// everything else as JSON), and returns a Response with flattened headers
// and a body decoded as JSON when possible. Responses with a status of 400
// or above are returned together with a *ResponseError.
//
// CurlCommand renders the same specification as a curl command line.
package httpclient
