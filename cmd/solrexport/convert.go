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

var convertIndent string

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <in.jsonl> [out.json]",
	Short: "Convert an exported JSONL file into a JSON array",
	Long: `Convert an exported JSONL file into a single indented JSON array.

Blank lines are ignored and lines that are not valid JSON are reported and
skipped. The output defaults to the input name with a .json extension.`,
	Example: `  solrexport convert exported_data.jsonl
  solrexport convert exported_data.jsonl /data/topic_10236681.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertIndent, "indent", "  ", "indentation per nesting level")
}

func runConvert(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}

	in := args[0]
	out := replaceExt(in, ".json")
	if len(args) == 2 {
		out = args[1]
	}

	var stats jsonl.Stats
	inSize, outSize, err := transform(in, out, func(r io.Reader, w io.Writer) error {
		var err error
		stats, err = jsonl.ToArray(cmd.Context(), r, w, jsonl.Options{
			Indent: convertIndent,
			Logger: logger.GetLogger(),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("convert %s: %w", in, err)
	}

	logger.GetLogger().InfoWithFields("conversion finished", map[string]interface{}{
		"input":   in,
		"output":  out,
		"records": stats.Records,
		"skipped": stats.Skipped,
	})
	ui.PrintSuccess("Converted %s records to %s", humanize.Comma(stats.Records), out)
	ui.PrintInfo("Size", humanize.Bytes(uint64(inSize))+" -> "+humanize.Bytes(uint64(outSize)))
	if stats.Skipped > 0 {
		ui.PrintWarning("Skipped %s malformed lines", humanize.Comma(stats.Skipped))
	}
	return nil
}
