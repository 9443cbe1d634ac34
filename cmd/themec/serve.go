package main

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"path"
	"time"

	"github.com/ersinkoc/Shopologic-sub016/pkg/theme"
	"github.com/spf13/cobra"
)

var serveCmd = cobra.Command{
	Use:   "serve",
	Short: "Preview the theme over HTTP, reloading templates as they change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		dataPath, _ := cmd.Flags().GetString("data")

		data, err := loadData(dataPath)
		if err != nil {
			return err
		}
		th, err := openTheme()
		if err != nil {
			return err
		}
		defer th.Close()

		watcher, err := th.Watch()
		if err != nil {
			return fmt.Errorf("watching templates: %w", err)
		}
		defer watcher.Close()
		go func() {
			for name := range watcher.Changed() {
				logger.Info("template changed", "name", name)
			}
		}()

		s := &http.Server{
			Addr:           addr,
			Handler:        newPreviewServer(th, data, logger),
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		logger.Info("preview server listening", "addr", addr)
		return s.ListenAndServe()
	},
}

type previewServer struct {
	theme  *theme.Theme
	data   map[string]any
	logger *slog.Logger
}

func newPreviewServer(th *theme.Theme, data map[string]any, logger *slog.Logger) *previewServer {
	return &previewServer{theme: th, data: data, logger: logger}
}

// ServeHTTP renders the template named by the request path. Query
// parameters are available to the template as "query".
func (srv *previewServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ext := srv.theme.Config.Extension
	if e := path.Ext(r.URL.Path); e != "" && e != ext {
		http.NotFound(w, r)
		return
	}
	name := theme.TemplateName(r.URL.Path, ext)

	query := map[string]any{}
	for k, v := range r.URL.Query() {
		query[k] = v[len(v)-1]
	}
	ctx := maps.Clone(srv.data)
	if ctx == nil {
		ctx = map[string]any{}
	}
	ctx["query"] = query
	ctx["current_path"] = r.URL.Path

	start := time.Now()
	out, err := srv.theme.Render(name, ctx)
	if err != nil {
		if theme.IsNotFound(err, name) {
			http.NotFound(w, r)
			return
		}
		srv.logger.Error("render failed", "template", name, "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "%s\n", err)
		return
	}
	srv.logger.Debug("rendered", "template", name, "duration", time.Since(start))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := io.WriteString(w, out); err != nil {
		srv.logger.Warn("writing response", "error", err)
	}
}
