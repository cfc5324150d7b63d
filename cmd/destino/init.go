package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/destino/scaffold"
)

var initCmd = &cobra.Command{
	Use:   "init <module>",
	Short: "Create a new destino site",
	Long: `Creates a new site directory named after the last element of the module
path, with a main package, a config file, an HTML shell and starter assets.

Examples:
  destino init visit-split
  destino init github.com/user/visit-split`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("no-tidy", false, "Skip go mod tidy")
}

func runInit(cmd *cobra.Command, args []string) error {
	data := scaffold.NewData(args[0], version)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Creating new destino site: %s\n\n", data.ProjectName)

	created, err := scaffold.Write(data.ProjectName, data)
	if err != nil {
		return err
	}
	for _, p := range created {
		fmt.Fprintf(out, "  created %s\n", p)
	}

	if noTidy, _ := cmd.Flags().GetBool("no-tidy"); !noTidy {
		fmt.Fprintln(out, "\nResolving Go dependencies...")
		tidy := exec.Command("go", "mod", "tidy")
		tidy.Dir = data.ProjectName
		tidy.Stdout = out
		tidy.Stderr = cmd.ErrOrStderr()
		if err := tidy.Run(); err != nil {
			logger.Warn("go mod tidy failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Run 'cd %s && go mod tidy' manually after fixing.\n", data.ProjectName)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Done! Next steps:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  cd %s\n", data.ProjectName)
	fmt.Fprintln(out, "  cp .env.example .env")
	fmt.Fprintln(out, "  go run .")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Edit shell.html to change the page shell, then run 'destino build' to prerender.")
	return nil
}
