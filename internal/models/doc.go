// Package models defines the domain values shared by the token proxy, the stores and the views.
//
// The package contains two categories of types:
//
// 1. Provider data: values derived from Spotify responses
//   - [TokenPair] : OAuth access/refresh tokens with their expiry
//   - [NowPlaying] : The currently playing track as served to clients
//   - [Theme] : Per-phase colors derived from album art
//
// 2. Persistence interfaces
//   - [TokenStore] : Session-keyed storage for token pairs
//
// Implementations of [TokenStore] live in the repositories package.
package models
