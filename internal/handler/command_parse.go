package handler

import (
	"strings"
)

const (
	CmdStart       = "start"
	CmdEnd         = "end"
	CmdEdit        = "edit"
	CmdCheck       = "check"
	CmdList        = "list"
	CmdExportData  = "export-data"
	CmdExportTotal = "export-total"
	CmdAdminEnd    = "admin-end"
	CmdAdminEdit   = "admin-edit"
	CmdHelp        = "help"
)

type Command struct {
	Name    string
	Options CommandOptions
}

// parseCommand reads a slash utterance such as
// "/edit 240301-001 2024-03-01 09:00 2024-03-01 17:30". Date-times take two
// words each. Missing trailing arguments are left empty; it returns nil when
// the utterance is not a slash command.
func parseCommand(utterance string) *Command {
	fields := strings.Fields(utterance)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return nil
	}

	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	args := fields[1:]
	cmd := &Command{Name: name}

	switch name {
	case CmdEdit, CmdAdminEdit:
		cmd.Options.PublicID = arg(args, 0)
		cmd.Options.NewStart = joinArgs(args, 1, 3)
		cmd.Options.NewEnd = joinArgs(args, 3, 5)

	case CmdAdminEnd:
		cmd.Options.PublicID = arg(args, 0)

	case CmdList, CmdExportData, CmdExportTotal:
		cmd.Options.StartDate = arg(args, 0)
		cmd.Options.EndDate = arg(args, 1)
	}

	return cmd
}

// resolveCommand prefers the structured command and falls back to the
// utterance.
func resolveCommand(req *CommandRequest) *Command {
	if name := strings.ToLower(strings.TrimSpace(req.Command)); name != "" {
		return &Command{Name: strings.TrimPrefix(name, "/"), Options: req.Options}
	}
	return parseCommand(req.Utterance)
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func joinArgs(args []string, from, to int) string {
	if from >= len(args) {
		return ""
	}
	if to > len(args) {
		to = len(args)
	}
	return strings.Join(args[from:to], " ")
}
