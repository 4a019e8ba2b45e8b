package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/datatype"
	"github.com/tnunnink/LogixHelper/logix"
	"github.com/tnunnink/LogixHelper/project"
	"github.com/tnunnink/LogixHelper/tagname"
)

var (
	labelColor = color.New(color.FgCyan).SprintFunc()
	valueColor = color.New(color.FgGreen).SprintFunc()
	dimColor   = color.New(color.FgHiBlack).SprintFunc()
)

// command is a one-shot subcommand run instead of the browser.
type command struct {
	usage string
	help  string
	// needsProject commands get the project built from the config.
	needsProject bool
	run          func(w io.Writer, p *project.Project, args []string) error
}

// commands is filled in init because its run funcs refer back to it.
var commands map[string]command

func init() {
	commands = map[string]command{
		"format": {
			usage: "format TYPE VALUE [RADIX]",
			help:  "Convert VALUE of atomic TYPE to RADIX, or to every radix the type supports",
			run:   func(w io.Writer, _ *project.Project, args []string) error { return runFormat(w, args) },
		},
		"parse": {
			usage: "parse [TYPE] TEXT",
			help:  "Infer the radix of TEXT and show the parsed value",
			run:   func(w io.Writer, _ *project.Project, args []string) error { return runParse(w, args) },
		},
		"resolve": {
			usage:        "resolve TAGPATH",
			help:         "Show the member a tag path resolves to",
			needsProject: true,
			run:          runResolve,
		},
		"tagnames": {
			usage:        "tagnames TYPE",
			help:         "List every member path of a data type",
			needsProject: true,
			run:          runTagNames,
		},
		"types": {
			usage:        "types",
			help:         "List the registered data types",
			needsProject: true,
			run:          runTypes,
		},
	}
}

func commandUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "\nCommands:")
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(w, "  %-28s %s\n", c.usage, c.help)
	}
}

// runCommand runs a subcommand against the config at configPath.
func runCommand(w io.Writer, cfg *config.Config, configPath string, args []string) error {
	c, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	var p *project.Project
	if c.needsProject {
		var err error
		if p, err = project.Load(cfg, configPath); err != nil {
			return err
		}
	}
	return c.run(w, p, args[1:])
}

func runFormat(w io.Writer, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: %s", commands["format"].usage)
	}
	a, err := logix.FromText(args[0], args[1])
	if err != nil {
		return err
	}

	if len(args) == 3 {
		r, err := logix.ParseRadix(args[2])
		if err != nil {
			return err
		}
		text, err := a.ToText(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, text)
		return nil
	}

	for _, r := range logix.Radixes {
		if r == logix.Null || !r.Supports(a.Kind()) {
			continue
		}
		text, err := a.ToText(r)
		if err != nil {
			fmt.Fprintf(w, "%s %s\n", labelColor(fmt.Sprintf("%-12s", r)), dimColor(err.Error()))
			continue
		}
		fmt.Fprintf(w, "%s %s\n", labelColor(fmt.Sprintf("%-12s", r)), valueColor(text))
	}
	return nil
}

func runParse(w io.Writer, args []string) error {
	var (
		a   *logix.Atomic
		err error
	)
	switch len(args) {
	case 1:
		a, err = logix.ParseAtomic(args[0])
	case 2:
		a, err = logix.FromText(args[0], args[1])
	default:
		return fmt.Errorf("usage: %s", commands["parse"].usage)
	}
	if err != nil {
		return err
	}

	text := args[len(args)-1]
	fmt.Fprintf(w, "%s %s\n", labelColor("Type: "), a.Name())
	fmt.Fprintf(w, "%s %s\n", labelColor("Radix:"), logix.Infer(strings.TrimSpace(text)))
	fmt.Fprintf(w, "%s %s\n", labelColor("Value:"), valueColor(fmt.Sprint(a.Value())))
	fmt.Fprintf(w, "%s %s\n", labelColor("Text: "), a.String())
	return nil
}

func runResolve(w io.Writer, p *project.Project, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", commands["resolve"].usage)
	}
	name, err := tagname.Parse(args[0])
	if err != nil {
		return err
	}
	info, err := p.View(name)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s\n", labelColor("Tag name:   "), info.TagName)
	fmt.Fprintf(w, "%s %s\n", labelColor("Data type:  "), info.DataType)
	fmt.Fprintf(w, "%s %s\n", labelColor("Class:      "), info.Class)
	fmt.Fprintf(w, "%s %s\n", labelColor("Radix:      "), info.Radix)
	fmt.Fprintf(w, "%s %s\n", labelColor("Access:     "), info.Access)
	if info.Description != "" {
		fmt.Fprintf(w, "%s %s\n", labelColor("Description:"), info.Description)
	}
	if info.Text != "" {
		fmt.Fprintf(w, "%s %s\n", labelColor("Value:      "), valueColor(info.Text))
	}
	if len(info.Members) > 0 {
		fmt.Fprintf(w, "%s %s\n", labelColor("Members:    "), strings.Join(info.Members, ", "))
	}
	return nil
}

func runTagNames(w io.Writer, p *project.Project, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", commands["tagnames"].usage)
	}
	dt, ok := p.Registry().Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown data type %q", args[0])
	}
	for _, name := range datatype.TagNames(dt) {
		fmt.Fprintln(w, name)
	}
	return nil
}

func runTypes(w io.Writer, p *project.Project, args []string) error {
	for _, dt := range p.Types() {
		fmt.Fprintf(w, "%-32s %s %s\n", valueColor(dt.Name()), dt.Class(), dimColor(dt.Description()))
	}
	return nil
}
