package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Victor725/PySASTBench-sub000/internal/scope"
)

var scopeCmd = &cobra.Command{
	Use:   "scope <file.py> <line>",
	Short: "Print the dotted scope path enclosing a source line",
	Long: `Resolve the class/function nesting that contains a line, exactly as the
evaluator does when matching findings. An empty line of output means module
level (or a file that does not parse).

  sastbench scope app/views.py 42`,
	Args: cobra.ExactArgs(2),
	RunE: scopeCommand,
}

func init() {
	rootCmd.AddCommand(scopeCmd)
}

func scopeCommand(cmd *cobra.Command, args []string) error {
	line, err := strconv.Atoi(args[1])
	if err != nil || line < 1 {
		return fmt.Errorf("invalid line number %q", args[1])
	}

	path, err := scope.Resolve(args[0], line)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
