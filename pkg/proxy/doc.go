// Package proxy exposes services running inside user containers through the
// platform's own address.
//
// # Architecture
//
// Each configured container port gets one route, served by a Pipeline:
//
//	/proxy5000/{identity}/{path...}  ->  Pipeline{InnerPort: 5000}
//
// A request walks through the pipeline in order, and the first failing step
// ends it:
//
//  1. OPTIONS is answered with 204 and the CORS headers, nothing else runs.
//  2. The route must have an inner port (500 otherwise).
//  3. The identity is looked up; its first container supervisor is used (404).
//  4. The inner port is resolved to the live host port (503).
//  5. X-Proxy-Token is read and removed, then checked against the
//     supervisor's token (403). Supervisors without a token are open.
//  6. The Forwarder relays the request and copies the response back.
//
// Nothing is retried and resolved endpoints are never cached.
//
// # Forwarding
//
// The Forwarder rejects protocol upgrades (500 "Not enabled for websocket"),
// drops hop-by-hop headers, does not follow redirects and bounds each call
// with a timeout. The response status, headers (except Content-Length,
// Transfer-Encoding, Content-Encoding and Connection) and body are relayed;
// the CORS headers are set on top. A transport failure becomes a 500 whose
// body is the HTML-escaped error.
//
// # Token endpoint
//
// TokenHandler serves /proxytoken/ for authenticated users:
//
//	GET  /proxytoken/            -> "abc123" | "" | null
//	POST /proxytoken/  random    -> "k3j4..."
//	POST /proxytoken/  disabled  -> null
//	POST /proxytoken/  allow_all -> ""
//
// Changes are persisted immediately through a Saver.
//
// # Errors
//
// Handlers never let a per-request error escape: StatusFor maps each error
// kind to its status code and WriteError writes a short plaintext body.
package proxy
