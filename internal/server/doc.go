// Package server exposes track resolution over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Middleware
//
// [Logging] records method, path, status, and duration for every request.
//
// [RateLimit] guards the API with a per-client token bucket. Clients are
// identified by bearer token when present, falling back to the remote IP.
// Denied requests get a 429 with Retry-After and X-RateLimit-Remaining headers.
//
// # Handlers
//
// [ResolveHandler] serves POST /api/resolve (batch resolution, JSON in and
// out) and POST /api/resolve/stream (Server-Sent Events mirroring the
// resolver's event channel). The request's bearer token is forwarded to the
// catalog client, so the server never holds credentials itself.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
