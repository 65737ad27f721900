// Porthole is an authenticating HTTP proxy in front of single-user
// containers.
//
// Requests to <route>/<identity>/<path> are forwarded to the host port that
// Docker currently publishes for the route's container port, after checking
// the supervisor's proxy token. Users manage their token through the token
// endpoint.
//
// Usage:
//
//	# Start the proxy
//	porthole run --config porthole.yaml
//
//	# Check a configuration and supervisor directory
//	porthole validate --config porthole.yaml
//
//	# Inspect persisted supervisor state
//	porthole state list
//	porthole token show alice
//	porthole token set alice random
package main

import "os"

func main() {
	os.Exit(Execute())
}
