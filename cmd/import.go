package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/startterm/startsh/core/vfs"
)

var importInto string

// importCmd copies a browser bookmark export into the stored tree
var importCmd = &cobra.Command{
	Use:   "import BOOKMARKS.html",
	Short: "Import bookmarks exported from a browser.",
	Long: `Import reads a Netscape bookmark file, the HTML format browsers export,
and copies it into a folder of the bookmarks bar.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		provider, err := configuration.LoadBookmarks()
		if err != nil {
			return err
		}

		fd, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer fd.Close()

		ctx := context.Background()
		folderID, err := findOrCreateFolder(ctx, provider, importInto)
		if err != nil {
			return err
		}

		count, err := vfs.ImportNetscape(ctx, provider, folderID, fd)
		if err != nil {
			return err
		}
		if err := configuration.SaveBookmarks(provider); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d bookmarks and folders into %s/%s\n", count, vfs.BookmarksBar, importInto)
		return nil
	},
}

// findOrCreateFolder returns the ID of the named folder in the bookmarks bar.
func findOrCreateFolder(ctx context.Context, provider vfs.ResourceProvider, name string) (string, error) {
	root, err := provider.GetTree(ctx)
	if err != nil {
		return "", err
	}

	var bar *vfs.Node
	for _, child := range root.Children {
		if child.Title == vfs.BookmarksBar {
			bar = child
			break
		}
	}
	if bar == nil {
		return "", fmt.Errorf("no %q folder", vfs.BookmarksBar)
	}

	for _, child := range bar.Children {
		if child.Title == name && child.IsDir() {
			return child.ID, nil
		}
	}

	folder, err := provider.Create(ctx, bar.ID, name, "")
	if err != nil {
		return "", err
	}
	return folder.ID, nil
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importInto, "into", "Imported", "bookmarks bar folder to import into")
}
