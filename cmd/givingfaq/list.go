package main

import (
	"fmt"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/knowledge/flat"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the questions of one language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			langFlag, _ := cmd.Flags().GetString("lang")
			lang, err := knowledge.ParseLanguage(langFlag)
			if err != nil {
				return err
			}

			st, err := newStore(ctx, cfg)
			if err != nil {
				return err
			}
			// Listing never searches, so the in-process index is enough.
			kb, err := knowledge.Load(ctx, st, flat.NewIndex)
			if err != nil {
				return err
			}

			printFAQs(cmd, kb, lang)
			return nil
		},
	}

	cmd.Flags().String("lang", string(knowledge.LanguageSimplifiedChinese), "Language (zh|zh-TW|en)")
	return cmd
}

func printFAQs(cmd *cobra.Command, kb *knowledge.KnowledgeBase, lang knowledge.Language) {
	out := cmd.OutOrStdout()
	entries := kb.FilterByLanguage(lang)
	if len(entries) == 0 {
		fmt.Fprintf(out, "No questions for %s.\n", lang.Label())
		return
	}
	for i, e := range entries {
		fmt.Fprintf(out, "Q%d: %s\n%s\n\n", i+1, e.Question, e.Answer)
	}
}
