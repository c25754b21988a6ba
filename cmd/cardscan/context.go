package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cardscan/internal/apiclient"
	"cardscan/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		if exists {
			c.configPath = resolved
		}
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// launchConfigPath is the config file a spawned server should read, empty
// when defaults were used.
func (c *commandContext) launchConfigPath() string {
	if _, err := c.ensureConfig(); err != nil {
		return ""
	}
	return c.configPath
}

func (c *commandContext) serverURL() string {
	if c.serverFlag != nil {
		if url := strings.TrimSpace(*c.serverFlag); url != "" {
			return strings.TrimRight(url, "/")
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		def := config.Default()
		return def.ServerURL()
	}
	return cfg.ServerURL()
}

func (c *commandContext) apiClient() (*apiclient.Client, error) {
	var opts []apiclient.Option
	if cfg := c.configValue(); cfg != nil && cfg.Server.APIToken != "" {
		opts = append(opts, apiclient.WithToken(cfg.Server.APIToken))
	}
	return apiclient.New(c.serverURL(), opts...)
}

func (c *commandContext) withClient(fn func(*apiclient.Client) error) error {
	client, err := c.apiClient()
	if err != nil {
		return err
	}
	return c.wrapServerError(fn(client))
}

func (c *commandContext) wrapServerError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apiclient.ErrServerUnreachable) {
		return fmt.Errorf("connect to server: %s is not answering; start it with `cardscan server start`: %w", c.serverURL(), err)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
