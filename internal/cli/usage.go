package cli

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

//go:embed USAGE.md
var usageContent string

var usageCmd = &cobra.Command{
	Use:     "usage",
	Aliases: []string{"info"},
	Short:   "Display hbdesk usage documentation",
	Long:    `Displays the embedded usage guide, rendered for the terminal.`,
	Args:    cobra.NoArgs,
	RunE:    runUsage,
}

var (
	usageJSON  bool
	usageRaw   bool
	usageStyle string
	usageWidth int
)

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.Flags().BoolVar(&usageJSON, "json", false, "Output as JSON")
	usageCmd.Flags().BoolVar(&usageRaw, "raw", false, "Print the markdown source")
	usageCmd.Flags().StringVar(&usageStyle, "style", "auto", "Glamour style: auto, dark, light, notty")
	usageCmd.Flags().IntVar(&usageWidth, "width", 80, "Word wrap width")
}

func runUsage(cmd *cobra.Command, args []string) error {
	if usageJSON {
		output := map[string]any{
			"content": usageContent,
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	}
	if usageRaw {
		fmt.Fprint(cmd.OutOrStdout(), usageContent)
		return nil
	}

	rendered, err := renderMarkdown(usageContent, usageStyle, usageWidth)
	if err != nil {
		return exitError(1, err)
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

func renderMarkdown(md, style string, width int) (string, error) {
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
