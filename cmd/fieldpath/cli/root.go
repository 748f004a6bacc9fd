// Package cli implements the fieldpath command tree.
package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frobware/go-fieldpath/config"
	"github.com/frobware/go-fieldpath/layout"
	"github.com/frobware/go-fieldpath/logging"
)

var (
	logSpec   string
	logFormat string
	stateDir  string
	btfPath   string

	// logger is initialised in the persistent pre-run and shared by
	// all subcommands.
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fieldpath",
	Short: "Resolve kernel access paths against a target type layout",
	Long: `fieldpath resolves the sensor's fixed vocabulary of kernel
struct access chains (process, executable, socket and credential
identity fields) against one target's type layout, verifies the
resulting reads, and reports which accessors that target supports.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := logging.ParseFormat(viper.GetString("log-format"))
		if err != nil {
			return err
		}
		logger, err = logging.New(logging.Options{
			CLISpec: logSpec,
			EnvSpec: viper.GetString("log"),
			Format:  format,
			Output:  cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logSpec, "log", "", "log spec: <level>[,<component>=<level>]...")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", config.DefaultRuntimeDirs().Base(), "state directory for the report database and BTF overrides")
	rootCmd.PersistentFlags().StringVar(&btfPath, "btf", "", "resolve against a BTF blob instead of the running kernel")

	viper.SetEnvPrefix("FIELDPATH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, flag := range []string{"log", "log-format", "state-dir", "btf"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("fieldpath version %s\n", rootCmd.Version))

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
}

// runtimeDirs builds RuntimeDirs from the configured state directory.
func runtimeDirs() (config.RuntimeDirs, error) {
	return config.NewRuntimeDirs(viper.GetString("state-dir"))
}

// loadSnapshot loads the layout snapshot: an explicit BTF blob when
// --btf is given, otherwise the running kernel's BTF. The second
// return value is the kernel release, when known.
func loadSnapshot() (*layout.BTF, string, error) {
	if path := viper.GetString("btf"); path != "" {
		snap, err := layout.LoadFile(path)
		return snap, "", err
	}
	snap, err := layout.LoadKernel()
	if err != nil {
		return nil, "", err
	}
	release, err := layout.KernelRelease()
	if err != nil {
		return nil, "", err
	}
	return snap, release, nil
}
