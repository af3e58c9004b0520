package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "roundtable",
	Short: "Expert roundtable: a panel of LLM experts and a tabular analyst behind one API",
	Long: `roundtable answers questions about uploaded documents. Tabular questions
are answered by generated pandas code run in a sandbox container; everything
else goes to a panel of three synthesized experts whose answers are combined
into one final answer with mindmaps and follow-up suggestions.`,
	SilenceUsage: true,
}

func init() {
	// path config.yaml
	def := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		def = v
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", def, "path to config.yaml")
	rootCmd.AddCommand(serveCmd, askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
