// Package mcpserver exposes the request runner as Model Context Protocol tools.
//
// Two tools are registered with the mark3labs/mcp-go server:
//
//   - send_request runs the optional pre-request script and sends the
//     resulting request.
//   - run_pre_request_script runs the script only and returns the modified
//     request, the environment and captured console output.
//
// Failures are returned as tool results with IsError set. The server is
// served over stdio or streamable HTTP depending on server.transport.
package mcpserver
