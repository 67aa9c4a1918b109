package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/triage-sim/triage-sim/sim/content"
)

// contentCmd groups content inspection subcommands
var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Inspect exercise content",
}

// contentValidateCmd loads and validates a content file
var contentValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a content file and list its definitions",
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := loadContent(contentPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := describeContent(os.Stdout, reg); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// describeContent lists the definitions of reg, sorted by id.
func describeContent(w io.Writer, reg *content.Registry) error {
	var lines []string
	for id, in := range reg.Injuries {
		lines = append(lines, fmt.Sprintf("injury  %-24s %s", id, in.Name))
	}
	for id, it := range reg.Items {
		for aid, a := range it.Actions {
			lines = append(lines, fmt.Sprintf("action  %-24s %s (%s)", id+"/"+aid, a.Name, a.Kind))
		}
	}
	for id, a := range reg.Acts {
		lines = append(lines, fmt.Sprintf("act     %-24s %s (%s)", id, a.Name, a.Kind))
	}
	for id := range reg.Chemicals {
		lines = append(lines, fmt.Sprintf("chem    %s", id))
	}
	sort.Strings(lines)
	if _, err := fmt.Fprintf(w, "content OK: %d injuries, %d items, %d acts, %d chemicals\n",
		len(reg.Injuries), len(reg.Items), len(reg.Acts), len(reg.Chemicals)); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	contentValidateCmd.Flags().StringVar(&contentPath, "content", "", "Content YAML file (default: built-in content)")
	contentCmd.AddCommand(contentValidateCmd)
	rootCmd.AddCommand(contentCmd)
}
