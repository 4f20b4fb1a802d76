package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/hoard/internal/app"
	"go.trai.ch/hoard/internal/core/domain"
)

func (c *CLI) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered artifacts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			category, _ := cmd.Flags().GetString("category")
			subcategory, _ := cmd.Flags().GetString("subcategory")
			return c.app.List(cmd.Context(), app.ListOptions{
				Category:    category,
				Subcategory: subcategory,
			})
		},
	}
	cmd.Flags().String("category", "", "Only list artifacts of this category")
	cmd.Flags().String("subcategory", "", "Only list artifacts of this subcategory")
	return cmd
}

func (c *CLI) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Show the configuration of an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Show(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) newDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default <category> <subcategory> [name]",
		Short: "Print or set the default artifact of a category",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 3 {
				name = args[2]
			}
			return c.app.Default(cmd.Context(), args[0], args[1], name)
		},
	}
}

func (c *CLI) newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <key> <path>",
		Short: "Register an artifact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			description, _ := cmd.Flags().GetString("description")
			isDefault, _ := cmd.Flags().GetBool("default")
			clobber, _ := cmd.Flags().GetBool("clobber")
			return c.app.Add(cmd.Context(), app.AddOptions{
				Key:         args[0],
				Path:        args[1],
				Format:      format,
				Description: description,
				Default:     isDefault,
				Clobber:     clobber,
			})
		},
	}
	cmd.Flags().StringP("format", "f", string(domain.FormatCheckpoint), "Artifact format: checkpoint, safetensors or folder")
	cmd.Flags().StringP("description", "d", "", "Human readable description")
	cmd.Flags().Bool("default", false, "Make this the default of its category")
	cmd.Flags().Bool("clobber", false, "Replace an existing registration")
	return cmd
}

func (c *CLI) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <key>",
		Aliases: []string{"rm"},
		Short:   "Unregister an artifact",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Remove(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Find artifacts in the models directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Scan(cmd.Context())
		},
	}
}
