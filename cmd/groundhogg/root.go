package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/birbparty/groundhogg-go/internal/telemetry"
	"github.com/birbparty/groundhogg-go/sdk"
	"github.com/birbparty/groundhogg-go/storage"
)

// cli carries state shared by every subcommand of one invocation.
type cli struct {
	out    io.Writer
	errOut io.Writer

	configDir string
	headers   map[string]string
	jsonOut   bool
	pageURL   string
	referrer  string

	config  *viper.Viper
	logger  *logrus.Logger
	backend storage.Backend
	sdk     *sdk.SDK
}

// userError marks failures caused by bad input rather than the system.
type userError struct{ error }

func (e userError) Unwrap() error { return e.error }

func userErrorf(format string, args ...any) error {
	return userError{fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	var ue userError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue),
		sdk.IsNoContact(err),
		errors.Is(err, sdk.ErrInvalidContactID),
		errors.Is(err, sdk.ErrInvalidConfig):
		return exitUserError
	}
	return exitSysError
}

// run executes one CLI invocation and releases whatever it opened, even
// when the command fails.
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	c := &cli{out: out, errOut: errOut}
	root := newRootCmd(c)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, c.close())
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "groundhogg",
		Short:         "Manage Groundhogg contacts and send tracking events",
		Version:       sdk.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsSDK(cmd) {
				return nil
			}
			return c.open(cmd)
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configDir, "config-dir", "", "configuration and session directory (default: ~/.groundhogg)")
	flags.String("endpoint", "", "Groundhogg site URL")
	flags.String("storage", storageFile, "session storage: file, redis or memory")
	flags.String("storage-key", sdk.DefaultStorageKey, "key the contact ID is stored under")
	flags.String("api-version", sdk.DefaultAPIVersion, "REST API version")
	flags.String("tracking-endpoint", sdk.DefaultTrackingEndpoint, "tracking endpoint path or URL")
	flags.Duration("timeout", sdk.DefaultTimeout, "per-request timeout")
	flags.Bool("debug", false, "log debug output to stderr")
	flags.StringToStringVar(&c.headers, "header", nil, "extra request header, KEY=VALUE (repeatable)")
	flags.BoolVar(&c.jsonOut, "json", false, "output as JSON")
	flags.StringVar(&c.pageURL, "url", "", "page URL attached to tracking events")
	flags.StringVar(&c.referrer, "referrer", "", "referrer attached to tracking events")

	root.AddCommand(
		newContactCmd(c),
		newTagsCmd(c),
		newNotesCmd(c),
		newTrackCmd(c),
		newSessionCmd(c),
		newVersionCmd(c),
	)
	return root
}

// needsSDK is false for commands that must work without an endpoint, such
// as version, help and shell completion.
func needsSDK(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		switch {
		case cmd.Annotations["sdk"] == "skip",
			cmd.Name() == "help",
			cmd.Name() == "completion",
			strings.HasPrefix(cmd.Name(), "__"):
			return false
		}
	}
	return true
}

// open loads configuration and builds the SDK for this invocation.
func (c *cli) open(cmd *cobra.Command) error {
	if c.configDir == "" {
		dir, err := defaultConfigDir()
		if err != nil {
			return err
		}
		c.configDir = dir
	}

	v, err := loadConfig(c.configDir, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	c.config = v

	logCfg := telemetry.NewConfigFromEnv("groundhogg-cli")
	logCfg.LogFormat = "text"
	logCfg.LogLevel = "warn"
	if v.GetBool(cfgKeyDebug) {
		logCfg.LogLevel = "debug"
	}
	c.logger = telemetry.NewLogger(logCfg, c.errOut)

	backend, err := c.openBackend(v.GetString(cfgKeyStorage))
	if err != nil {
		return err
	}
	c.backend = backend

	config := sdk.DefaultConfig().
		WithEndpoint(v.GetString(cfgKeyEndpoint)).
		WithDebug(v.GetBool(cfgKeyDebug)).
		WithStorageKey(v.GetString(cfgKeyStorageKey)).
		WithAPIVersion(v.GetString(cfgKeyAPIVersion)).
		WithTrackingEndpoint(v.GetString(cfgKeyTrackingEndpoint)).
		WithLogger(c.logger).
		WithStorage(backend)
	if c.pageURL != "" || c.referrer != "" {
		config.WithPage(sdk.Page{URL: c.pageURL, Referrer: c.referrer})
	}
	if timeout := v.GetDuration(cfgKeyTimeout); timeout > 0 {
		config.WithTimeout(timeout)
	}
	for k, val := range v.GetStringMapString(cfgKeyHeaders) {
		config.WithHeader(k, val)
	}
	for k, val := range c.headers {
		config.WithHeader(k, val)
	}

	groundhogg, err := sdk.New(config)
	if err != nil {
		_ = backend.Close()
		c.backend = nil
		return err
	}
	c.sdk = groundhogg
	return nil
}

func (c *cli) openBackend(kind string) (storage.Backend, error) {
	switch kind {
	case storageFile, "":
		return storage.NewFile(c.configDir)
	case storageRedis:
		redisCfg, err := storage.NewRedisConfigFromEnv()
		if err != nil {
			return nil, err
		}
		return storage.NewRedis(redisCfg)
	case storageMemory:
		return storage.NewMemory(), nil
	}
	return nil, userErrorf("unknown storage %q (want file, redis or memory)", kind)
}

func (c *cli) close() error {
	var errs []error
	if c.sdk != nil {
		errs = append(errs, c.sdk.Close())
		c.sdk = nil
	}
	if c.backend != nil {
		errs = append(errs, c.backend.Close())
		c.backend = nil
	}
	return errors.Join(errs...)
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version number",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"sdk": "skip"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.jsonOut {
				return c.printJSON(map[string]string{"version": sdk.Version})
			}
			fmt.Fprintf(c.out, "groundhogg v%s\n", sdk.Version)
			return nil
		},
	}
}
