package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/reminders"
	"github.com/sandeepkv93/studyd/internal/timeutil"
)

type Type string

const (
	TypeAdd    Type = "add"
	TypeEdit   Type = "edit"
	TypeDone   Type = "done"
	TypeRemove Type = "rm"
	TypeClear  Type = "clear"
	TypeFilter Type = "filter"
	TypeSearch Type = "search"
	TypeStats  Type = "stats"
	TypeNotify Type = "notify"
	TypeTest   Type = "test"
)

var aliases = map[string]Type{
	"new":    TypeAdd,
	"toggle": TypeDone,
	"delete": TypeRemove,
	"del":    TypeRemove,
	"find":   TypeSearch,
}

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Target names a reminder either by its position in the visible list (#n,
// 1-based) or by an id prefix.
type Target struct {
	Index int
	Ref   string
}

func (t Target) String() string {
	if t.Index > 0 {
		return "#" + strconv.Itoa(t.Index)
	}
	return t.Ref
}

func parseTarget(raw string) (Target, error) {
	if strings.HasPrefix(raw, "#") {
		n, err := strconv.Atoi(raw[1:])
		if err != nil || n < 1 {
			return Target{}, invalid("bad list position %q", raw)
		}
		return Target{Index: n}, nil
	}
	return Target{Ref: raw}, nil
}

// Fields are the key:value tokens shared by add and edit. Nil means the
// token was absent.
type Fields struct {
	Title       *string
	Type        *model.ReminderType
	Due         *string
	At          *string
	Subject     *string
	Description *string
	Offsets     []model.Offset
}

type AddArgs struct {
	Fields
}

type EditArgs struct {
	Target Target
	Fields
}

type TargetArgs struct {
	Target Target
}

type FilterArgs struct {
	Kind reminders.FilterKind
}

type SearchArgs struct {
	Query string
}

type Command struct {
	Type   Type
	Raw    string
	Add    *AddArgs
	Edit   *EditArgs
	Target *TargetArgs
	Filter *FilterArgs
	Search *SearchArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(raw, ":"), "/"))
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := Type(strings.ToLower(parts[0]))
	if alias, ok := aliases[string(head)]; ok {
		head = alias
	}
	args := parts[1:]

	switch head {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeEdit:
		return parseEdit(input, args)
	case TypeDone, TypeRemove:
		return parseTargeted(input, head, args)
	case TypeFilter:
		return parseFilter(input, args)
	case TypeSearch:
		return Command{Type: TypeSearch, Raw: input, Search: &SearchArgs{Query: strings.Join(args, " ")}}, nil
	case TypeClear, TypeStats, TypeNotify, TypeTest:
		if len(args) > 0 {
			return Command{}, invalid("%s takes no arguments", head)
		}
		return Command{Type: head, Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	f, err := parseFields(args)
	if err != nil {
		return Command{}, err
	}
	if f.Title == nil {
		return Command{}, invalid("add requires a title")
	}
	if f.Due == nil {
		return Command{}, invalid("add requires due:<day>")
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Fields: f}}, nil
}

func parseEdit(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("edit requires a target and at least one change")
	}
	target, err := parseTarget(args[0])
	if err != nil {
		return Command{}, err
	}
	f, err := parseFields(args[1:])
	if err != nil {
		return Command{}, err
	}
	if f.At != nil && f.Due == nil {
		return Command{}, invalid("at: needs due: in the same edit")
	}
	return Command{Type: TypeEdit, Raw: raw, Edit: &EditArgs{Target: target, Fields: f}}, nil
}

func parseTargeted(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("%s requires exactly one target", typ)
	}
	target, err := parseTarget(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: typ, Raw: raw, Target: &TargetArgs{Target: target}}, nil
}

func parseFilter(raw string, args []string) (Command, error) {
	if len(args) > 1 {
		return Command{}, invalid("filter takes one of: all, active, homework, test, completed")
	}
	kind, err := reminders.ParseFilterKind(strings.Join(args, ""))
	if err != nil {
		return Command{}, invalid("filter takes one of: all, active, homework, test, completed")
	}
	return Command{Type: TypeFilter, Raw: raw, Filter: &FilterArgs{Kind: kind}}, nil
}

// parseFields reads key:value tokens. Bare words form the title and note:
// swallows the rest of the line.
func parseFields(args []string) (Fields, error) {
	var f Fields
	title := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		key, value, ok := strings.Cut(args[i], ":")
		if !ok {
			title = append(title, args[i])
			continue
		}
		switch strings.ToLower(key) {
		case "due":
			f.Due = &value
		case "at":
			f.At = &value
		case "subject":
			subject := strings.ReplaceAll(value, "_", " ")
			f.Subject = &subject
		case "type":
			typ := model.ReminderType(strings.ToLower(value))
			if !typ.IsValid() {
				return Fields{}, invalid("type must be homework or test, got %q", value)
			}
			f.Type = &typ
		case "remind":
			offsets, err := model.ParseOffsets(value)
			if err != nil {
				return Fields{}, invalid("remind: %v", err)
			}
			f.Offsets = offsets
		case "note":
			note := strings.TrimSpace(strings.Join(append([]string{value}, args[i+1:]...), " "))
			f.Description = &note
			i = len(args)
		default:
			title = append(title, args[i])
		}
	}
	if len(title) > 0 {
		t := strings.Join(title, " ")
		f.Title = &t
	}
	return f, nil
}

// DueDate resolves due: and at: against now. A missing at: means end of day.
func (f Fields) DueDate(now time.Time) (time.Time, error) {
	if f.Due == nil {
		return time.Time{}, invalid("due date is missing")
	}
	day, err := timeutil.ParseDay(*f.Due, now)
	if err != nil {
		return time.Time{}, invalid("%v", err)
	}
	clock := ""
	if f.At != nil {
		clock = *f.At
	}
	due, err := timeutil.CombineDateAndTime(day, clock, now.Location())
	if err != nil {
		return time.Time{}, invalid("%v", err)
	}
	return due, nil
}

// NewReminder builds store input. An absent type means homework; absent
// offsets are left nil so the store applies the user's defaults.
func (a AddArgs) NewReminder(now time.Time) (model.NewReminder, error) {
	due, err := a.DueDate(now)
	if err != nil {
		return model.NewReminder{}, err
	}
	in := model.NewReminder{
		Title:   *a.Title,
		Type:    model.ReminderTypeHomework,
		DueDate: due,
		Offsets: a.Offsets,
	}
	if a.Type != nil {
		in.Type = *a.Type
	}
	if a.Subject != nil {
		in.Subject = *a.Subject
	}
	if a.Description != nil {
		in.Description = *a.Description
	}
	return in, nil
}

func (e EditArgs) Patch(now time.Time) (model.Patch, error) {
	p := model.Patch{
		Title:       e.Title,
		Type:        e.Type,
		Description: e.Description,
		Subject:     e.Subject,
		Offsets:     e.Offsets,
	}
	if e.Due != nil {
		due, err := e.DueDate(now)
		if err != nil {
			return model.Patch{}, err
		}
		p.DueDate = &due
	}
	if p.IsEmpty() {
		return model.Patch{}, invalid("edit has nothing to change")
	}
	return p, nil
}
