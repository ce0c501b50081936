package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Alain-L/lognorm/rules"
)

func newListParsersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-parsers",
		Short: "List parsers in selection order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			selectable := make(map[string]bool)
			for _, name := range reg.Selectable() {
				selectable[name] = true
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("NAME", "SELECTOR", "MATCH RULES", "RULES")
			for _, name := range reg.Names() {
				p, err := reg.Lookup(name)
				if err != nil {
					return err
				}
				steps := make([]string, 0, len(p.Steps()))
				for _, s := range p.Steps() {
					steps = append(steps, s.Name)
				}
				mark := ""
				if selectable[name] {
					mark = "yes"
				}
				t.Row(name, mark, strconv.Itoa(len(p.MatchRules)), strings.Join(steps, ","))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return err
		},
	}
}

func newListRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-rules",
		Short: "List the rule names usable in parser definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range rules.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
