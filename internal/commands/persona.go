package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/chatstream/internal/config"
)

var (
	personaDescFlag   string
	personaPromptFlag string
	personaFromFlag   string
	personaForceFlag  bool
)

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Manage chat personas",
	Long: `View and manage personas. A persona's system prompt is the fixed first
message of every conversation started with it.

Built-in personas can be overridden with 'persona add --force' and restored
by deleting the override.`,
}

var personaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available personas",
	Args:  cobra.NoArgs,
	RunE:  runPersonaList,
}

var personaShowCmd = &cobra.Command{
	Use:               "show <name>",
	Short:             "Show a persona's system prompt",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePersonaArg,
	RunE:              runPersonaShow,
}

var personaAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a persona, or replace one with --force",
	Long: `Add a persona. The prompt comes from --prompt, --prompt-file, or stdin
(description on the first line, prompt until an empty line).`,
	Args: cobra.ExactArgs(1),
	RunE: runPersonaAdd,
}

var personaDeleteCmd = &cobra.Command{
	Use:               "delete <name>",
	Short:             "Delete a persona or a built-in override",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePersonaArg,
	RunE:              runPersonaDelete,
}

var personaSetDefaultCmd = &cobra.Command{
	Use:               "default <name>",
	Short:             "Set the persona used when none is given",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePersonaArg,
	RunE:              runPersonaSetDefault,
}

func init() {
	personaAddCmd.Flags().StringVarP(&personaDescFlag, "description", "d", "", "Short description")
	personaAddCmd.Flags().StringVar(&personaPromptFlag, "prompt", "", "System prompt text")
	personaAddCmd.Flags().StringVar(&personaFromFlag, "prompt-file", "", "Read the system prompt from a file")
	personaAddCmd.Flags().BoolVar(&personaForceFlag, "force", false, "Replace an existing persona")
	personaAddCmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")

	personaCmd.AddCommand(personaListCmd)
	personaCmd.AddCommand(personaShowCmd)
	personaCmd.AddCommand(personaAddCmd)
	personaCmd.AddCommand(personaDeleteCmd)
	personaCmd.AddCommand(personaSetDefaultCmd)
}

// completePersonaNames completes --persona and persona arguments
func completePersonaNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names, err := config.ListPersonaNames()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, toComplete) {
			out = append(out, name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func completePersonaArg(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completePersonaNames(cmd, args, toComplete)
}

func runPersonaList(cmd *cobra.Command, args []string) error {
	set, err := config.LoadPersonas()
	if err != nil {
		return fmt.Errorf("failed to load personas: %w", err)
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSOURCE\tDEFAULT\tDESCRIPTION")

	for _, p := range set.All() {
		mark := ""
		if p.Name == set.DefaultName() {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, personaSource(set, p), mark, p.Description)
	}
	return w.Flush()
}

func personaSource(set *config.PersonaSet, p config.Persona) string {
	if !set.IsBuiltin(p.Name) {
		return "custom"
	}
	for _, b := range config.BuiltinPersonas() {
		if b == p {
			return "built-in"
		}
	}
	return "override"
}

func runPersonaShow(cmd *cobra.Command, args []string) error {
	p, err := config.GetPersona(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "%s", p.Name)
	if p.Description != "" {
		fmt.Fprintf(deps.Stdout, " - %s", p.Description)
	}
	fmt.Fprintf(deps.Stdout, "\n\n%s\n", p.SystemPrompt)
	return nil
}

func runPersonaAdd(cmd *cobra.Command, args []string) error {
	p := config.Persona{
		Name:         args[0],
		Description:  strings.TrimSpace(personaDescFlag),
		SystemPrompt: personaPromptFlag,
	}

	switch {
	case personaFromFlag != "":
		data, err := os.ReadFile(personaFromFlag)
		if err != nil {
			return fmt.Errorf("failed to read prompt file: %w", err)
		}
		p.SystemPrompt = string(data)
	case p.SystemPrompt == "":
		desc, prompt, err := readPersonaInput()
		if err != nil {
			return err
		}
		if p.Description == "" {
			p.Description = desc
		}
		p.SystemPrompt = prompt
	}
	p.SystemPrompt = strings.TrimSpace(p.SystemPrompt)

	err := config.AddPersona(p)
	verb := "created"
	if errors.Is(err, config.ErrPersonaExists) {
		if !personaForceFlag {
			return fmt.Errorf("%w; use --force to replace it", err)
		}
		err = config.UpdatePersona(p)
		verb = "updated"
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "Persona '%s' %s.\n", p.Name, verb)
	return nil
}

// readPersonaInput reads a description line, then prompt lines up to the first
// empty line or EOF.
func readPersonaInput() (string, string, error) {
	if deps.Stdin == nil {
		return "", "", errors.New("no prompt given; use --prompt or --prompt-file")
	}
	r := bufio.NewReader(deps.Stdin)

	fmt.Fprint(deps.Stdout, "Description: ")
	desc, err := r.ReadString('\n')
	if err != nil && desc == "" {
		return "", "", fmt.Errorf("failed to read description: %w", err)
	}

	fmt.Fprintln(deps.Stdout, "System prompt (end with an empty line):")
	var lines []string
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}
	return strings.TrimSpace(desc), strings.Join(lines, "\n"), nil
}

func runPersonaDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := config.DeletePersona(name); err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "Persona '%s' deleted.\n", name)
	return nil
}

func runPersonaSetDefault(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := config.SetDefaultPersona(name); err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "Default persona set to '%s'.\n", name)
	return nil
}
