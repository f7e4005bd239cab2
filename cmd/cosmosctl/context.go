package main

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cosmos-backend/infrastructure/config"
	"cosmos-backend/infrastructure/di"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	once      sync.Once
	container *di.Container
	cleanup   func()
	err       error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, jsonFlag: jsonFlag}
}

// ensureContainer opens the configured store once per invocation.
func (c *commandContext) ensureContainer(ctx context.Context) (*di.Container, error) {
	c.once.Do(func() {
		if err := config.LoadDotEnv(); err != nil {
			c.err = err
			return
		}
		cfg, err := config.NewLoader(strings.TrimSpace(*c.configFlag)).Load()
		if err != nil {
			c.err = err
			return
		}
		// Keep command output readable.
		cfg.Logging.Level = "error"
		c.container, c.cleanup, c.err = di.InitializeContainer(ctx, cfg)
	})
	return c.container, c.err
}

func (c *commandContext) close() {
	if c.cleanup != nil {
		c.cleanup()
	}
}

func (c *commandContext) asJSON() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
