// Package cli implements the reqbox command line.
//
// Commands:
//
//	reqbox serve                     run the REST API or MCP server (fx application)
//	reqbox send <url>                run the pre-request script and send
//	reqbox script [url]              run the pre-request script only
//	reqbox curl <url>                print the request as a curl command
//	reqbox collection list <file>    list the requests of a collection
//	reqbox collection run <file>     run the requests of a collection
//
// All commands accept --config to point at a configuration file.
package cli
