package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/ghl-gateway/internal/domain/tool"
)

func catalogCmd() *cobra.Command {
	var (
		category string
		format   string
		path     string
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the tool catalog",
		Long: `Print the tool catalog the gateway serves.

Examples:
  ghl-gateway catalog                          # YAML, every tool
  ghl-gateway catalog --category blog -f json  # JSON, one category
  ghl-gateway catalog --file ./catalog.yaml    # check a custom catalog`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry(path)
			if err != nil {
				return err
			}

			defs := registry.All()
			if category != "" {
				c := tool.Category(category)
				if !registry.HasCategory(c) {
					return usageError{err: fmt.Errorf("unknown category %q (have %v)", category, registry.Categories())}
				}
				defs = registry.ByCategory(c)
			}

			var out []byte
			switch format {
			case "yaml":
				out, err = tool.EncodeCatalogYAML(defs)
			case "json":
				out, err = json.MarshalIndent(defs, "", "  ")
				out = append(out, '\n')
			default:
				return usageError{err: fmt.Errorf("unknown format %q (want yaml or json)", format)}
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only print tools of this category")
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")
	cmd.Flags().StringVar(&path, "file", "", "Catalog file to load instead of the embedded one")
	return cmd
}
