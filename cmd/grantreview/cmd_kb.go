package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"grantreview/internal/format"
	"grantreview/internal/kb"
	"grantreview/internal/pipeline"
)

func newKBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the executive-order knowledge base",
	}
	cmd.AddCommand(newKBIndexCmd(a), newKBListCmd(a), newKBShowCmd(a), newKBSearchCmd(a))
	return cmd
}

func newKBIndexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index [dir]",
		Short: "Index a directory of executive-order text files",
		Long: `Parse every executive-order file in dir (default: knowledge_base.documents_dir)
and replace the knowledge-base database with its pages. File names carry the
EO number and title, e.g. 14008_Tackling_the_Climate_Crisis.txt.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.KnowledgeBase.DocumentsDir
			if len(args) == 1 {
				dir = args[0]
			}
			orders, chunks, err := kb.LoadDir(dir)
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				return fmt.Errorf("no executive orders found in %s", dir)
			}
			idx, err := kb.OpenIndex(a.cfg.KnowledgeBase.DBPath, nil)
			if err != nil {
				return err
			}
			defer idx.Close()
			if err := idx.Replace(cmd.Context(), orders, chunks); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d executive orders (%d pages) into %s\n",
				len(orders), len(chunks), a.cfg.KnowledgeBase.DBPath)
			return nil
		},
	}
}

func newKBListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed executive orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, closeFn, err := a.openIndex(cmd.Context())
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}
			orders, err := idx.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(orders) == 0 {
				fmt.Fprintln(out, "Knowledge base is empty. Run 'grantreview kb index <dir>'.")
				return nil
			}
			tbl := format.NewTable(format.ASCII)
			tbl.Header("EO", "Title", "Effective", "Pages", "Areas")
			tbl.Columns(
				format.ColumnConfig{Number: 2, MaxWidth: 50},
				format.ColumnConfig{Number: 4, Align: format.AlignRight},
			)
			for _, o := range orders {
				tbl.Row(o.EONumber, o.Title, dash(o.EffectiveDate), o.Pages, strings.Join(o.Areas, ", "))
			}
			fmt.Fprintln(out, tbl.String())
			return nil
		},
	}
}

func newKBShowCmd(a *app) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "show <eo-number>",
		Short: "Show one executive order and its pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, closeFn, err := a.openIndex(cmd.Context())
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}
			o, chunks, err := idx.Get(cmd.Context(), args[0])
			if errors.Is(err, kb.ErrNotFound) {
				return fmt.Errorf("executive order %s is not in the knowledge base", args[0])
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Executive Order %s: %s\n", o.EONumber, o.Title)
			fmt.Fprintf(out, "Source:    %s\n", o.Source)
			fmt.Fprintf(out, "Effective: %s\n", dash(o.EffectiveDate))
			fmt.Fprintf(out, "Areas:     %s\n", dash(strings.Join(o.Areas, ", ")))
			fmt.Fprintf(out, "Keywords:  %s\n", dash(strings.Join(o.Keywords, ", ")))
			for _, c := range chunks {
				text := c.Text
				if !full {
					text = format.Truncate(strings.Join(strings.Fields(text), " "), 300)
				}
				fmt.Fprintf(out, "\n--- page %d ---\n%s\n", c.Page, text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Print full page text")
	return cmd
}

func newKBSearchCmd(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base the way the compliance stage does",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &services{}
			defer s.Close()
			search, err := a.openSearcher(cmd.Context(), s)
			if err != nil {
				return err
			}
			passages, err := search.Search(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(passages) == 0 {
				fmt.Fprintln(out, "No matching passages.")
				return nil
			}
			tbl := format.NewTable(format.ASCII)
			tbl.Header("EO", "Page", "Score", "Excerpt")
			tbl.Columns(format.ColumnConfig{Number: 4, MaxWidth: 70})
			for _, p := range passages {
				tbl.Row(p.Metadata[pipeline.MetaEONumber], dash(p.Metadata[pipeline.MetaPageNumber]),
					dash(p.Metadata[pipeline.MetaScore]), format.Truncate(strings.Join(strings.Fields(p.Excerpt), " "), 200))
			}
			fmt.Fprintln(out, tbl.String())
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "Maximum passages")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
