package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/webframp/otalog/catalog"
	"github.com/webframp/otalog/srv"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     srv.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (srv.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = srv.LoadConfig(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) loadCatalog() (srv.Config, *catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return cfg, nil, err
	}
	store, err := catalog.LoadDir(cfg.CatalogDir)
	if err != nil {
		return cfg, nil, fmt.Errorf("load catalog: %w", err)
	}
	return cfg, store, nil
}

// shouldSkipConfig reports whether cmd runs without the server config.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfig"] == "true" {
			return true
		}
	}
	return cmd.Name() == "help"
}

func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}
