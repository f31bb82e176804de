package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"relink/internal/catalog"
	"relink/internal/logging"
	"relink/internal/store"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Content database utilities",
	}
	storeCmd.AddCommand(newStoreInitCommand(ctx))
	storeCmd.AddCommand(newStoreImportCommand(ctx))
	return storeCmd
}

func newStoreInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty content database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), cfg.Paths.ContentDB, store.Options{Create: true})
			if err != nil {
				return err
			}
			defer st.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Content database ready at %s\n", st.Path())
			return nil
		},
	}
}

func newStoreImportCommand(ctx *commandContext) *cobra.Command {
	var catalogPath string
	var contentPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load catalog entries or content items from JSON files",
		Long: "Import upserts catalog entries and content items from JSON arrays. Catalog " +
			"objects carry id, name, slug, sku and kind; content objects carry id, title, kind and body.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(catalogPath) == "" && strings.TrimSpace(contentPath) == "" {
				return errors.New("at least one of --catalog or --content is required")
			}
			s, err := ctx.openSession(cmd, sessionOptions{readOnlyLedger: true})
			if err != nil {
				return err
			}
			defer s.close()

			out := cmd.OutOrStdout()
			if catalogPath != "" {
				var entries []catalog.Entry
				if err := readJSONFile(catalogPath, &entries); err != nil {
					return err
				}
				if err := s.store.SeedCatalog(s.ctx, entries...); err != nil {
					return err
				}
				s.logger.Info("catalog imported",
					logging.String(logging.FieldEventType, "catalog_imported"),
					logging.String("path", catalogPath),
					logging.Int("entries", len(entries)))
				fmt.Fprintf(out, "Imported %d catalog entries\n", len(entries))
			}
			if contentPath != "" {
				var items []store.ContentItem
				if err := readJSONFile(contentPath, &items); err != nil {
					return err
				}
				if err := s.store.SeedContent(s.ctx, items...); err != nil {
					return err
				}
				s.logger.Info("content imported",
					logging.String(logging.FieldEventType, "content_imported"),
					logging.String("path", contentPath),
					logging.Int("items", len(items)))
				fmt.Fprintf(out, "Imported %d content items\n", len(items))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "JSON file with catalog entries")
	cmd.Flags().StringVar(&contentPath, "content", "", "JSON file with content items")
	return cmd
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
