package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"litebans-web/internal/model"
	"litebans-web/internal/records"
)

const reasonWidth = 40

func newRecordsCmd(opts *rootOptions) *cobra.Command {
	var (
		category  string
		page      int
		perPage   int
		search    string
		sortBy    string
		sortOrder string
	)

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List one page of punishment records",
		Example: "  litebansctl records --category ban --page 2\n" +
			"  litebansctl records --category mute --search Notch --json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.svc.Records == nil {
				return errNotConfigured
			}
			cat, ok := model.LookupCategory(category)
			if !ok {
				return fmt.Errorf("unknown category %q", category)
			}
			order, err := records.ParseSortOrder(sortOrder)
			if err != nil {
				return err
			}

			result, err := opts.svc.Records.List(cmd.Context(), records.Query{
				Category:     cat,
				Page:         page,
				ItemsPerPage: perPage,
				Search:       search,
				SortBy:       sortBy,
				SortOrder:    order,
			})
			if err != nil {
				return fmt.Errorf("list %s: %w", cat.Table, err)
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, result)
			}
			if len(result.Items) == 0 {
				fmt.Fprintf(out, "No %s found.\n", cat.Table)
				return nil
			}

			fmt.Fprintf(out, "%-8s  %-16s  %-16s  %-8s  %-20s  %s\n", "ID", "PLAYER", "STAFF", "STATUS", "DATE", "REASON")
			fmt.Fprintf(out, "%-8s  %-16s  %-16s  %-8s  %-20s  %s\n", "--", "------", "-----", "------", "----", "------")
			for _, r := range result.Items {
				fmt.Fprintf(out, "%-8d  %-16s  %-16s  %-8s  %-20s  %s\n",
					r.ID,
					displayName(r.Player),
					displayName(r.Staff),
					r.Status,
					time.UnixMilli(r.Time).UTC().Format("2006-01-02 15:04:05"),
					truncate(deref(r.Reason), reasonWidth),
				)
			}

			m := result.Metadata
			fmt.Fprintf(out, "\npage %d of %d (%d %s)\n", m.Page, m.TotalPages, m.TotalItems, cat.Table)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "ban", "Category (ban, mute, warning, kick)")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&perPage, "per-page", 10, "Records per page")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only records of this player name or UUID")
	cmd.Flags().StringVar(&sortBy, "sort-by", "", "Sort field (time, until, id, ...)")
	cmd.Flags().StringVar(&sortOrder, "order", "", "Sort order (asc, desc)")

	return cmd
}

func displayName(p *model.Player) string {
	if p == nil {
		return "-"
	}
	if p.Username != "" {
		return p.Username
	}
	return p.UUID
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
