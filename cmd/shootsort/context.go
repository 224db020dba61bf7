package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shootsort/internal/config"
	"shootsort/internal/discover"
)

// commandContext loads configuration once per invocation and shares it
// across subcommands.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) flagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.flagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// groupDirName is the output folder name grouping runs create under the
// source, also used to prune prior output from discovery and watching.
func groupDirName(cfg *config.Config) string {
	if cfg != nil && strings.TrimSpace(cfg.Grouping.GroupDirName) != "" {
		return cfg.Grouping.GroupDirName
	}
	return discover.DefaultSkipPrefix
}
