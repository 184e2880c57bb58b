// Package web embeds the browser application shell.
//
// The shell is static: the countdown runs in the browser against the wall clock, now-playing is
// polled from /current-track every five seconds, and durations are stored through /settings.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var files embed.FS

// Static is the embedded asset tree rooted at static/.
var Static = mustSub(files, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Assets serves files under /static/.
func Assets() http.Handler {
	return http.StripPrefix("/static/", http.FileServerFS(Static))
}

// Shell serves index.html for any path, letting the client own routing.
func Shell() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFileFS(w, r, Static, "index.html")
	})
}
