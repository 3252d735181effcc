// Package apiserver exposes the request runner over a JSON REST API.
//
// Routes:
//
//	POST   /api/request       run the pre-request script, then send
//	POST   /api/script        run the pre-request script only
//	POST   /api/curl          render the request as a curl command
//	GET    /api/history       list recorded exchanges, newest first
//	GET    /api/history/{id}  fetch one recorded exchange
//	DELETE /api/history       clear the history
//
// A failing script answers 400 with {"error": "Pre-request script error",
// "details": ...}. A failing send answers 500 with {"error", "response"},
// where response is null unless the target answered with an error status.
package apiserver
