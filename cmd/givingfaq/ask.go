package main

import (
	"fmt"
	"strings"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/resolver"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question from the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			augment, _ := cmd.Flags().GetBool("augment")

			kb, err := loadKnowledgeBase(ctx, cfg)
			if err != nil {
				return err
			}

			res, err := newResolver(cfg, kb).Answer(ctx, resolver.Query{
				Text:     strings.Join(args, " "),
				Language: lang,
				Augment:  augment,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Found() {
				fmt.Fprintln(out, "No answer found.")
				return nil
			}
			fmt.Fprintf(out, "Q: %s\nA: %s\n", res.Match.Entry.Question, res.PrimaryAnswer())

			switch res.Augmentation {
			case resolver.AugmentSucceeded:
				fmt.Fprintf(out, "\n%s\n", res.Supplementary)
			case resolver.AugmentFailed:
				fmt.Fprintf(cmd.ErrOrStderr(), "supplementary answer unavailable: %v\n", res.AugmentErr)
			}
			return nil
		},
	}

	cmd.Flags().String("lang", string(knowledge.LanguageSimplifiedChinese), "Display language (zh|zh-TW|en)")
	cmd.Flags().Bool("augment", false, "Add a generated supplementary answer")
	return cmd
}
