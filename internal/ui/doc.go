// Package ui implements the terminal timer using bubbletea's Elm architecture.
//
// The (view) [Model] shows a large countdown, the current phase, a wall clock and the track the
// listener is playing, painted with the album art theme for the current phase.
//
// Two clocks drive it: a 100ms display tick that recomputes the countdown from the wall clock, and a
// five second poll for now-playing. A failed poll keeps the last known track.
//
// Keys: space start/pause, r reset, +/- focus minutes, q quit.
package ui
