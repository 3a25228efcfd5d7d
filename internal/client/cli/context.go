package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/videofeed/internal/client/api"
	"github.com/dmitrijs2005/videofeed/internal/client/config"
	"github.com/dmitrijs2005/videofeed/internal/client/state"
)

const skipConfigAnnotation = "skipConfigLoad"

type commandContext struct {
	configFlag  *string
	serverFlag  *string
	tokenFlag   *string
	timeoutFlag *time.Duration

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, serverFlag, tokenFlag *string, timeoutFlag *time.Duration) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		serverFlag:  serverFlag,
		tokenFlag:   tokenFlag,
		timeoutFlag: timeoutFlag,
	}
}

// ensureConfig loads the client configuration once; explicit flags win over
// the file and the environment.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.serverFlag != nil && strings.TrimSpace(*c.serverFlag) != "" {
			cfg.ServerURL = strings.TrimSpace(*c.serverFlag)
		}
		if c.tokenFlag != nil && *c.tokenFlag != "" {
			cfg.Token = *c.tokenFlag
		}
		if c.timeoutFlag != nil && *c.timeoutFlag > 0 {
			cfg.Timeout = *c.timeoutFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// apiClient builds a client for the configured server. Without an explicit
// token it falls back to the one saved by `login --save`.
func (c *commandContext) apiClient(ctx context.Context) (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	token := cfg.Token
	if token == "" {
		token, err = c.savedToken(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	return api.New(cfg.ServerURL, token, cfg.Timeout), nil
}

func (c *commandContext) savedToken(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.StatePath == "" {
		return "", nil
	}
	st, err := state.OpenExisting(ctx, cfg.StatePath)
	if errors.Is(err, state.ErrNoState) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer st.Close()
	return st.Tokens.Get(ctx, cfg.ServerURL)
}

// withState runs fn against the local state database. create controls
// whether a missing database is created or reported as state.ErrNoState.
func (c *commandContext) withState(ctx context.Context, create bool, fn func(*state.State) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if cfg.StatePath == "" {
		return errors.New("local state is disabled (state_path is empty)")
	}
	open := state.OpenExisting
	if create {
		open = state.Open
	}
	st, err := open(ctx, cfg.StatePath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

func skipConfig() map[string]string {
	return map[string]string{skipConfigAnnotation: "true"}
}

func parseVideoID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid video id %q", arg)
	}
	return id, nil
}
