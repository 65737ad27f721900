/*
Package auth authenticates platform users by API key.

Each configured key maps to one platform identity. The middleware stores the
matching APIKeyInfo in the request context, and IdentityFromRequest reads it
back for handlers that act on the caller's own resources:

	validator := auth.NewAPIKeyValidator([]*auth.APIKeyInfo{
		{Key: "3f9c1e...", Identity: "alice", Enabled: true},
	})
	guard := auth.NewAPIKeyMiddleware(validator, nil)
	mux.Handle("/proxytoken/", guard.Handle(tokenHandler))

# API Key Sources

With nil sources the middleware accepts, in order:

 1. Authorization: token <key>
 2. Authorization: Bearer <key>
 3. ?token=<key>

Key values are never logged, only the identity they map to.

# Configuration Example

	security:
	  api_keys:
	    - key: "3f9c1e..."
	      identity: "alice"
	    - key: "a07b44..."
	      identity: "bob"
	      enabled: false
*/
package auth
