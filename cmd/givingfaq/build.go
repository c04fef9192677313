package main

import (
	"fmt"
	"log/slog"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Rebuild the knowledge base from the FAQ spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			source, err := newRowSource(cfg.Source)
			if err != nil {
				return err
			}
			rows, err := source.Rows(ctx)
			if err != nil {
				return fmt.Errorf("read rows: %w", err)
			}
			slog.Info("rows loaded", "count", len(rows), "source", cfg.Source.Type)

			embedder := newEmbedder(cfg)
			snap, err := knowledge.Build(ctx, rows, embedder, embedder.Model())
			if err != nil {
				return fmt.Errorf("build knowledge base: %w", err)
			}

			st, err := newStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			if err := st.Save(ctx, snap); err != nil {
				return fmt.Errorf("save knowledge base: %w", err)
			}

			vs, err := newVectorStore(cfg.Index, snap.Dimension)
			if err != nil {
				return fmt.Errorf("open vector index: %w", err)
			}
			if vs != nil {
				if err := vs.Upsert(ctx, snap.Entries); err != nil {
					return fmt.Errorf("index entries: %w", err)
				}
			}

			counts := make(map[knowledge.Language]int)
			for _, e := range snap.Entries {
				counts[e.Language]++
			}
			for _, lang := range knowledge.Languages() {
				slog.Info("partition built", "lang", lang, "entries", counts[lang])
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Built %d entries (model %s, dimension %d) into %s store.\n",
				len(snap.Entries), snap.Model, snap.Dimension, cfg.Store.Type)
			return nil
		},
	}
}
