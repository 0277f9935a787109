// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const (
	renderCmdUsage = "render [file]"
	renderCmdShort = "re-render JSON log records with a text pattern"
	renderCmdLong  = `Re-render JSON log records with a text pattern.
	The command reads one JSON record per line, from a file or from the standard
	input, and writes every record back through a configurable text pattern.
	Records below the --min-level threshold are discarded.`

	renderCmdExample = `# Render a captured log file as LEVEL:logger:message lines
	molog render service.log

	# Pretty print the records of a running service with timestamps
	kubectl logs service | molog render --format "%(asctime)s %(levelname)s %(message)s"`
)

// RenderCmd returns the Cobra command that re-renders JSON log records.
func RenderCmd() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:     renderCmdUsage,
		Short:   heredoc.Doc(renderCmdShort),
		Long:    heredoc.Doc(renderCmdLong),
		Example: heredoc.Doc(renderCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: cobra.FixedCompletions(nil, cobra.ShellCompDirectiveDefault),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.toOptions(cmd, args)
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.execute(); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}
