package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"solrexport/pkg/jsonl"
	"solrexport/pkg/logger"
	"solrexport/pkg/ui"
)

var stripFieldName string

// stripCmd represents the strip-field command
var stripCmd = &cobra.Command{
	Use:   "strip-field <in> [out]",
	Short: "Remove a top-level field from every exported document",
	Long: `Remove one top-level field from every document of a JSONL file or JSON
array, keeping the input format.

The default field is _version_, which makes Solr reject re-imported documents
with version conflicts. The output defaults to the input name with a
_no_version suffix.`,
	Example: `  solrexport strip-field exported_data.json
  solrexport strip-field exported_data.jsonl clean.jsonl --field score`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runStrip,
}

func init() {
	rootCmd.AddCommand(stripCmd)
	stripCmd.Flags().StringVar(&stripFieldName, "field", jsonl.DefaultStripField, "field to remove")
}

func runStrip(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}

	in := args[0]
	out := withSuffix(in, "_no"+stripSuffix(stripFieldName))
	if len(args) == 2 {
		out = args[1]
	}

	var touched int
	inSize, outSize, err := transform(in, out, func(r io.Reader, w io.Writer) error {
		var err error
		touched, err = jsonl.StripField(r, w, stripFieldName)
		return err
	})
	if err != nil {
		return fmt.Errorf("strip %s from %s: %w", stripFieldName, in, err)
	}

	logger.GetLogger().InfoWithFields("field stripped", map[string]interface{}{
		"input":   in,
		"output":  out,
		"field":   stripFieldName,
		"records": touched,
	})
	ui.PrintSuccess("Removed %s from %s records into %s", stripFieldName, humanize.Comma(int64(touched)), out)
	ui.PrintInfo("Size", humanize.Bytes(uint64(inSize))+" -> "+humanize.Bytes(uint64(outSize)))
	return nil
}

// stripSuffix turns a field name into a file name suffix: _version_ -> _version
func stripSuffix(field string) string {
	for len(field) > 0 && field[len(field)-1] == '_' {
		field = field[:len(field)-1]
	}
	if len(field) == 0 || field[0] != '_' {
		field = "_" + field
	}
	return field
}
