// Package collection loads saved request collections.
//
// A collection file is YAML (or JSON) of the form:
//
//	name: Users API
//	requests:
//	  - name: create user
//	    method: POST
//	    url: https://api.example.com/users
//	    headers:
//	      Content-Type: application/json
//	    body:
//	      name: alice
//	    preRequestScript: |
//	      request.headers["X-Request-Id"] = String(Date.now());
//
// Each request converts to a runner.Submission.
package collection
