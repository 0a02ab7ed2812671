package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/cwfg/pkg/config"
	"github.com/charlie0129/cwfg/pkg/cw2015"
	"github.com/charlie0129/cwfg/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("client: %s %s\n", version.Version, version.GitCommit)

			daemonVersion, err := apiClient.GetVersion()
			if err != nil {
				logrus.Debugf("failed to get daemon version: %v", err)
				return
			}
			cmd.Printf("daemon: %s\n", daemonVersion)
			if daemonVersion != version.Version {
				logrus.WithFields(logrus.Fields{
					"clientVersion": version.Version,
					"daemonVersion": daemonVersion,
				}).Warn("Version mismatch between client and daemon.")
			}
		},
	}
}

func queryNames() []string {
	names := make([]string, 0, len(cw2015.Queries))
	for _, q := range cw2015.Queries {
		names = append(names, q.Name)
	}
	return names
}

func NewGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "get [query]",
		Short:     "Read a single value from the fuel gauge",
		GroupID:   gBasic,
		ValidArgs: queryNames(),
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Long: fmt.Sprintf(`Read a single value from the fuel gauge.

The value is read from the chip when the command runs. Available queries: %s.`, strings.Join(queryNames(), ", ")),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := apiClient.GetQuery(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func NewQueriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "queries",
		Short:   "List the queries served by the daemon",
		GroupID: gAdvanced,
		RunE: func(cmd *cobra.Command, _ []string) error {
			qs, err := apiClient.GetQueries()
			if err != nil {
				return err
			}
			for _, q := range qs {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-5s %s\n", q.Name, q.Unit, q.Description)
			}
			return nil
		},
	}
}

func NewInitConfigCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "init-config",
		Short:   "Write a config file with default values",
		GroupID: gAdvanced,
		Long: `Write a config file with default values to the path given by --config.

Edit "bus" and "address" to match the board the fuel gauge is soldered on.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if !force && fileExists(configPath) {
				return fmt.Errorf("%s already exists, use --force to overwrite it", configPath)
			}

			if err := config.NewFileFromConfig(config.Default(), configPath).Save(); err != nil {
				return err
			}

			logrus.Infof("wrote default config to %s", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")

	return cmd
}
