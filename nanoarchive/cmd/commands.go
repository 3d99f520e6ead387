package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/arthur-debert/nanoarchive/formats"
	"github.com/arthur-debert/nanoarchive/nanoarchive"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	collectionColor = color.New(color.FgCyan, color.Bold)
	idColor         = color.New(color.FgGreen)
	warnColor       = color.New(color.FgYellow)
)

func (cli *CLI) pathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path <collection> <id>",
		Short: "Print the file location of an entry",
		Long:  "Print where an entry lives in the archive tree. The file does not need to exist.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cli.archiver()
			if err != nil {
				return err
			}
			location, err := a.Location(args[0], args[1])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}
}

func (cli *CLI) showCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <collection> <id>",
		Short: "Print an archived entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output == "" {
				output = cli.settings.Format
			}
			format, err := formats.Get(output)
			if err != nil {
				return err
			}

			c, err := cli.collection(args[0])
			if err != nil {
				return err
			}
			doc, err := c.TryLoad(args[1])
			if errors.Is(err, nanoarchive.ErrNotFound) {
				return fmt.Errorf("no entry %q in %s", args[1], c.Name())
			}
			if err != nil {
				return err
			}

			data, err := format.Marshal(doc.rec)
			if err != nil {
				return fmt.Errorf("failed to render entry: %w", err)
			}
			_, _ = cmd.OutOrStdout().Write(data)
			if len(data) > 0 && data[len(data)-1] != '\n' {
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output format (json|yaml, default: archive format)")
	return cmd
}

func (cli *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls [collection]",
		Aliases: []string{"list"},
		Short:   "List collections, or the identifiers stored in one",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				a, err := cli.archiver()
				if err != nil {
					return err
				}
				names, err := a.Collections()
				if err != nil {
					return err
				}
				for _, name := range names {
					_, _ = collectionColor.Fprintln(out, name)
				}
				return nil
			}

			c, err := cli.collection(args[0])
			if err != nil {
				return err
			}
			ids, err := c.IDs()
			if err != nil {
				return err
			}
			for _, id := range ids {
				_, _ = idColor.Fprintln(out, id)
			}
			return nil
		},
	}
}

func (cli *CLI) importCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <collection> <file>",
		Short: "Cache the objects of a JSON response file",
		Long: `Cache the objects of a JSON response file as entries of a collection.

The file holds either a list of objects or a single object. With --key the
list is read from that key of the top-level object. Objects without a usable
identifier are skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, _ := cmd.Flags().GetString("key")
			idField, _ := cmd.Flags().GetString("id-field")

			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read response file: %w", err)
			}

			c, err := cli.collection(args[0])
			if err != nil {
				return err
			}
			bridge, err := nanoarchive.NewResponseBridge(c, documentResponseDecoder(idField))
			if err != nil {
				return err
			}

			var objs []nanoarchive.ResponseObject
			switch {
			case key != "":
				obj, err := nanoarchive.ParseResponse(data)
				if err != nil {
					return err
				}
				objs = nanoarchive.ObjectsAt(obj, key)
			default:
				if objs, err = nanoarchive.ParseResponseList(data); err != nil {
					obj, objErr := nanoarchive.ParseResponse(data)
					if objErr != nil {
						return err
					}
					objs = []nanoarchive.ResponseObject{obj}
				}
			}

			imported := bridge.BuildAndCacheCollection(objs)
			out := cmd.OutOrStdout()
			if len(imported) < len(objs) {
				_, _ = warnColor.Fprintf(out, "imported %d of %d objects into %s\n", len(imported), len(objs), c.Name())
			} else {
				_, _ = fmt.Fprintf(out, "imported %d of %d objects into %s\n", len(imported), len(objs), c.Name())
			}
			cli.logger.Info("imported response", "collection", c.Name(), "file", args[1], "imported", len(imported), "total", len(objs))
			return nil
		},
	}
	cmd.Flags().String("key", "", "Top-level key holding the list of objects")
	cmd.Flags().String("id-field", "id", "Object field holding the identifier")
	return cmd
}

func (cli *CLI) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <collection> <id>...",
		Aliases: []string{"remove"},
		Short:   "Delete entries from a collection",
		Long:    "Delete entries from a collection. Identifiers with no entry are ignored.",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.collection(args[0])
			if err != nil {
				return err
			}
			var errs []error
			for _, id := range args[1:] {
				if err := c.TryDeleteID(id); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}

func (cli *CLI) clearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the whole archive subdirectory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("refusing to clear the archive without --yes")
			}
			a, err := cli.archiver()
			if err != nil {
				return err
			}
			if err := a.TryClearAll(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", a.ArchiveDir())
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm removal of every cached entry")
	return cmd
}
