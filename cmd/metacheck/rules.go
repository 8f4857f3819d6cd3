package main

import (
	"encoding/json"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/kpumuk/metacheck/internal/fix"
	"github.com/kpumuk/metacheck/internal/rules"
)

type ruleJSON struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Chain    string `json:"chain"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Fixable  bool   `json:"fixable"`
}

func (a *app) rulesCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rule catalog in step order",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			switch format {
			case outputFormatText:
				writeRules(a.stdout, newPalette(colorEnabled(a.cfg.Color, a.stdout)))
				return nil
			case outputFormatJSON:
				return writeJSONRules(a.stdout)
			}
			return usageErrorf("unknown format %q", format)
		},
	}
	cmd.Flags().StringVar(&format, "format", outputFormatText, "output format: text or json")
	return cmd
}

func writeRules(w io.Writer, p palette) {
	all := rules.All()
	nameWidth := 0
	for _, r := range all {
		nameWidth = max(nameWidth, runewidth.StringWidth(r.Name))
	}
	for _, r := range all {
		writef(
			w,
			"%s  %s  %-10s  %s\n",
			p.rule.Sprint(r.Code),
			runewidth.FillRight(r.Name, nameWidth),
			r.Chain.String(),
			r.Title,
		)
	}
}

func writeJSONRules(w io.Writer) error {
	all := rules.All()
	payload := make([]ruleJSON, 0, len(all))
	for _, r := range all {
		payload = append(payload, ruleJSON{
			Code:     r.Code,
			Name:     r.Name,
			Chain:    r.Chain.String(),
			Severity: r.Severity.String(),
			Title:    r.Title,
			Message:  r.MessageFormat,
			Fixable:  fix.Has(r.ID),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
