// Package server provides HTTP routing, middleware, sessions and the token proxy routes.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so each route names its method.
//
// # Sessions
//
// [Sessions] issues an HTTP-only cookie holding a signed session id. The id keys the token store,
// so browser tabs sharing a cookie share one Spotify login. OAuth state is a second signed token
// bound to that id and valid for ten minutes.
//
// # Routes
//
// [App.Handler] mounts the [ProxyHandler] (login, callback, current track, logout), the
// [SettingsHandler], health and metrics endpoints, and the embedded browser shell.
//
// # Terminal Login
//
// [OAuthHandler] serves the single callback of a terminal login on a short-lived local server
// and reports the outcome through a channel. It only processes one callback.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
