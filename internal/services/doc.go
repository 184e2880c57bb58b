// Package services talks to the music provider and holds the token proxy core.
//
// # Provider Interface
//
// [Provider] is the narrow surface the proxy needs from an OAuth music service: build the
// consent URL, exchange an authorization code, refresh an access token, and read the
// currently playing track. [SpotifyService] implements it over [oauth2.Config] with HTTP
// Basic client authentication at the token endpoint.
//
// # Token Proxy
//
// [TokenProxy] keeps one [models.TokenPair] per session in an injected [models.TokenStore].
// A provider 401 triggers exactly one refresh and the triggering call still reports
// [shared.ErrTokenRefreshed]; the caller's next poll uses the new token. Refreshes are
// collapsed per session with singleflight, and a refresh token is never dropped when the
// provider omits a new one.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no token pair for the session, or refresh failed
//   - [shared.ErrTokenExpired] : provider answered 401 for the access token
//   - [shared.ErrTokenRefreshed] : the access token was refreshed; retry the request
//   - [shared.ErrAuthFailed] : authorization code exchange failed
//   - [shared.ErrRefreshFailed] : refresh-token exchange failed
//   - [shared.ErrAPIRequest] : any other provider failure
package services
