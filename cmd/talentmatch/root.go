package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/talentmatch/internal/version"
)

const rootLongDesc = `talentmatch ranks candidates for jobs and jobs for candidates by blending
embedding similarity with weighted attribute coverage.

  talentmatch serve      Run the HTTP API server
  talentmatch version    Print build information`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "talentmatch",
		Short:        "Semantic candidate and job matching",
		Long:         rootLongDesc,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringP("env", "e", "", "Config environment (local, dev, prod); defaults to $ENV or local")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
