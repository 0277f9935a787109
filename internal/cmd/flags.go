// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mia-platform/molog"
)

const (
	formatFlagName  = "format"
	formatFlagShort = "f"
	formatFlagUsage = "Pattern used to render every record. Defaults to LEVEL:logger:message in the selected style."

	styleFlagName    = "style"
	styleFlagUsage   = "Placeholder style of the pattern, either 'percent' or 'brace'"
	styleFlagDefault = "percent"

	minLevelFlagName  = "min-level"
	minLevelFlagShort = "l"
	minLevelFlagUsage = "Discard records below this level name"

	dateFormatFlagName  = "date-format"
	dateFormatFlagUsage = "Go time layout used to render the 'asctime' field"

	utcFlagName  = "utc"
	utcFlagUsage = "Render times in UTC instead of local time"
)

// flags collects the CLI options of the render command.
type flags struct {
	format     string
	style      string
	minLevel   string
	dateFormat string
	utc        bool
}

// addFlags registers the CLI flags on cmd.
func (f *flags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, formatFlagName, formatFlagShort, "", formatFlagUsage)
	cmd.Flags().StringVar(&f.style, styleFlagName, styleFlagDefault, styleFlagUsage)
	cmd.Flags().StringVarP(&f.minLevel, minLevelFlagName, minLevelFlagShort, "", minLevelFlagUsage)
	cmd.Flags().StringVar(&f.dateFormat, dateFormatFlagName, "", dateFormatFlagUsage)
	cmd.Flags().BoolVar(&f.utc, utcFlagName, false, utcFlagUsage)
}

// toOptions builds an options instance from the parsed flags and CLI arguments.
func (f *flags) toOptions(cmd *cobra.Command, args []string) (*options, error) {
	style, err := molog.ParseStyle(f.style)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidFlag, unwrappedError(err))
	}

	format := f.format
	if format == "" {
		format = molog.BasicFormat
		if style == molog.StyleBrace {
			format = "{levelname}:{name}:{message}"
		}
	}

	formatter, err := molog.NewTextFormatter(format, style)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errInvalidFlag, err)
	}
	formatter.SetDateFormat(f.dateFormat)
	formatter.SetUTC(f.utc)

	minLevel := molog.NOTSET
	if f.minLevel != "" {
		minLevel, err = molog.ParseLevel(f.minLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errInvalidFlag, err)
		}
	}

	inputPath := ""
	if len(args) > 0 {
		inputPath = args[0]
	}

	return &options{
		inputPath: inputPath,
		formatter: formatter,
		minLevel:  minLevel,
		input:     cmd.InOrStdin(),
		output:    cmd.OutOrStdout(),
	}, nil
}
