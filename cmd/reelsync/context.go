package main

import (
	"strings"
	"sync"

	"reelsync/internal/api"
	"reelsync/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// apiClient builds a daemon client from the --api flag, falling back to the
// configured bind address.
func (c *commandContext) apiClient() (*api.Client, error) {
	bind := ""
	if c.apiFlag != nil {
		bind = strings.TrimSpace(*c.apiFlag)
	}
	token := ""
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		if bind == "" {
			bind = cfg.Paths.APIBind
		}
		token = cfg.Paths.APIToken
	}
	return api.New(bind, token)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
