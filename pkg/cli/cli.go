package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const indentUnit = 4

func indentAt(level int) string { return strings.Repeat(" ", indentUnit*level) }

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	val, err := strconv.ParseBool(s)
	if err != nil && s != "" {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val || s == ""
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }
func (v *intValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	args       []string
	flagGroups []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage, expectedType string) {
	*p = value
	f.Var(&intValue{p}, name, shorthand, usage, strconv.Itoa(value), expectedType)
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, fmt.Sprintf("%v", value), expectedType)
}

func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name:                 name,
		Description:          description,
		Flags:                entries,
		GroupType:            groupType,
		AvailableFlagsHeader: availableFlagsHeader,
	})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case len(arg) < 2 || arg[0] != '-':
			f.args = append(f.args, arg)
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		case strings.HasPrefix(arg, "--"):
			if err := f.parseFlag("--", arg[2:], arguments, &i); err != nil {
				return err
			}
		default:
			// Single dash long names like -Fno-imports take priority over shorthands.
			name := strings.SplitN(arg[1:], "=", 2)[0]
			if _, ok := f.flags[name]; ok {
				if err := f.parseFlag("-", arg[1:], arguments, &i); err != nil {
					return err
				}
				continue
			}
			if err := f.parseShortFlag(arg, arguments, &i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *FlagSet) parseFlag(dash, body string, arguments []string, i *int) error {
	parts := strings.SplitN(body, "=", 2)
	name := parts[0]
	if name == "" {
		return fmt.Errorf("empty flag name")
	}
	flag, ok := f.flags[name]
	if !ok {
		return fmt.Errorf("unknown flag: %s%s", dash, name)
	}
	if len(parts) == 2 {
		return flag.Value.Set(parts[1])
	}
	if _, isBool := flag.Value.(*boolValue); isBool {
		return flag.Value.Set("")
	}
	if *i+1 >= len(arguments) {
		return fmt.Errorf("flag needs an argument: %s%s", dash, name)
	}
	*i++
	return flag.Value.Set(arguments[*i])
}

func (f *FlagSet) parseShortFlag(arg string, arguments []string, i *int) error {
	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok {
		return fmt.Errorf("unknown shorthand flag: -%s", shorthand)
	}
	if _, isBool := flag.Value.(*boolValue); isBool {
		return flag.Value.Set("")
	}
	value := arg[2:]
	if value == "" {
		if *i+1 >= len(arguments) {
			return fmt.Errorf("flag needs an argument: -%s", shorthand)
		}
		*i++
		value = arguments[*i]
	}
	return flag.Value.Set(value)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error

	Stdout io.Writer
	Stderr io.Writer
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		a.writeUsagePage(a.Stderr)
		return err
	}
	if help {
		a.writeHelpPage(a.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) writeUsagePage(w io.Writer) {
	var sb strings.Builder
	termWidth := terminalWidth(w)

	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)

	optionFlags := a.optionFlags()
	if len(optionFlags) > 0 {
		maxFlagWidth, maxUsageWidth := 0, 0
		for _, flag := range optionFlags {
			maxFlagWidth = max(maxFlagWidth, len(formatFlagString(flag)))
			maxUsageWidth = max(maxUsageWidth, len(flag.Usage))
		}

		fmt.Fprintf(&sb, "\n%sOptions\n", indentAt(1))
		for _, flag := range optionFlags {
			formatFlagLine(&sb, flag, termWidth, maxFlagWidth, maxUsageWidth)
		}
	}

	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	fmt.Fprint(w, sb.String())
}

func (a *App) writeHelpPage(w io.Writer) {
	var sb strings.Builder
	termWidth := terminalWidth(w)
	globalMaxWidth := a.maxFlagWidth()

	globalMaxUsageWidth := 0
	optionFlags := a.optionFlags()
	for _, flag := range optionFlags {
		globalMaxUsageWidth = max(globalMaxUsageWidth, len(flag.Usage))
	}
	for _, group := range a.FlagSet.flagGroups {
		for _, entry := range group.Flags {
			globalMaxUsageWidth = max(globalMaxUsageWidth, len(entry.Usage))
		}
	}

	sb.WriteString("\n")
	if a.Since != 0 {
		fmt.Fprintf(&sb, "%sCopyright (c) %d: %s\n", indentAt(1), a.Since, strings.Join(a.Authors, ", ")+" and contributors")
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indentAt(1), a.Repository)
	}

	if a.Synopsis != "" {
		fmt.Fprintf(&sb, "\n%sSynopsis\n", indentAt(1))
		synopsis := strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
		fmt.Fprintf(&sb, "%s%s %s\n", indentAt(2), a.Name, synopsis)
	}

	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indentAt(1))
		for _, line := range wrapText(a.Description, termWidth-len(indentAt(2))) {
			fmt.Fprintf(&sb, "%s%s\n", indentAt(2), line)
		}
	}

	if len(optionFlags) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indentAt(1))
		for _, flag := range optionFlags {
			formatFlagLine(&sb, flag, termWidth, globalMaxWidth, globalMaxUsageWidth)
		}
	}

	groups := append([]FlagGroup(nil), a.FlagSet.flagGroups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, group := range groups {
		formatFlagGroup(&sb, group, termWidth, globalMaxWidth, globalMaxUsageWidth)
	}

	fmt.Fprint(w, sb.String())
}

// optionFlags returns the flags that are not part of a group, sorted by name.
func (a *App) optionFlags() []*Flag {
	var res []*Flag
	for _, flag := range a.FlagSet.flags {
		if !a.isGroupFlag(flag.Name) {
			res = append(res, flag)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

func (a *App) isGroupFlag(flagName string) bool {
	for _, group := range a.FlagSet.flagGroups {
		for _, entry := range group.Flags {
			if flagName == entry.Prefix+entry.Name || flagName == entry.Prefix+"no-"+entry.Name {
				return true
			}
		}
	}
	return false
}

func (a *App) maxFlagWidth() int {
	width := 0
	for _, flag := range a.optionFlags() {
		width = max(width, len(formatFlagString(flag)))
	}
	for _, group := range a.FlagSet.flagGroups {
		if len(group.Flags) == 0 {
			continue
		}
		prefix := group.Flags[0].Prefix
		width = max(width, len(fmt.Sprintf("-%sno-<%s>", prefix, group.GroupType)))
		for _, entry := range group.Flags {
			width = max(width, len(entry.Name))
		}
	}
	return width
}

func formatFlagString(flag *Flag) string {
	var sb strings.Builder
	_, isBool := flag.Value.(*boolValue)

	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s", flag.Shorthand)
		if !isBool {
			fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
		}
		sb.WriteString(", ")
	}
	fmt.Fprintf(&sb, "--%s", flag.Name)
	if !isBool && flag.ExpectedType != "" {
		if flag.Shorthand != "" {
			fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
		} else {
			fmt.Fprintf(&sb, "=%s", flag.ExpectedType)
		}
	}
	return sb.String()
}

func formatEntry(sb *strings.Builder, termWidth int, leftPart, usagePart, rightPart string, leftWidth, maxUsageWidth int) {
	indentStr := indentAt(2)

	usageWidth := termWidth - (len(indentStr) + leftWidth + 1 + 2 + len(rightPart))
	if usageWidth < 10 {
		usageWidth = 10
	}
	usageLines := wrapText(usagePart, usageWidth)

	first := ""
	if len(usageLines) > 0 {
		first = usageLines[0]
	}

	if rightPart != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indentStr, leftWidth, leftPart, min(maxUsageWidth, usageWidth), first, rightPart)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indentStr, leftWidth, leftPart, first)
	}

	wrappedIndent := strings.Repeat(" ", leftWidth+1)
	for _, line := range usageLines[min(1, len(usageLines)):] {
		fmt.Fprintf(sb, "%s%s%s\n", indentStr, wrappedIndent, line)
	}
}

func formatFlagLine(sb *strings.Builder, flag *Flag, termWidth, maxWidth, maxUsageWidth int) {
	rightPart := ""
	if flag.DefValue != "" && flag.DefValue != "false" && flag.DefValue != "[]" {
		if _, isBool := flag.Value.(*boolValue); !isBool {
			rightPart = fmt.Sprintf("|%s|", flag.DefValue)
		}
	}
	formatEntry(sb, termWidth, formatFlagString(flag), flag.Usage, rightPart, maxWidth, maxUsageWidth)
}

func formatFlagGroup(sb *strings.Builder, group FlagGroup, termWidth, maxWidth, maxUsageWidth int) {
	if len(group.Flags) == 0 {
		return
	}

	fmt.Fprintf(sb, "\n%s%s\n", indentAt(1), group.Name)

	prefix := group.Flags[0].Prefix
	groupType := group.GroupType
	if groupType == "" {
		groupType = "flag"
	}

	fmt.Fprintf(sb, "%s%-*s Enable a specific %s\n", indentAt(2), maxWidth, fmt.Sprintf("-%s<%s>", prefix, groupType), groupType)
	fmt.Fprintf(sb, "%s%-*s Disable a specific %s\n", indentAt(2), maxWidth, fmt.Sprintf("-%sno-<%s>", prefix, groupType), groupType)

	if group.AvailableFlagsHeader != "" {
		fmt.Fprintf(sb, "%s%s\n", indentAt(1), group.AvailableFlagsHeader)
	}

	entries := append([]FlagGroupEntry(nil), group.Flags...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	for _, entry := range entries {
		rightPart := "|-|"
		if entry.Enabled != nil && *entry.Enabled && (entry.Disabled == nil || !*entry.Disabled) {
			rightPart = "|x|"
		}
		formatEntry(sb, termWidth, entry.Name, entry.Usage, rightPart, maxWidth, maxUsageWidth)
	}
}

// terminalWidth asks the terminal behind w for its width, defaulting to 80 columns.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}

	var lines []string
	var line strings.Builder

	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+len(word)+1 > maxWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteString(" ")
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
