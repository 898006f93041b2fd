package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add    func(AddArgs) (Result, error)
	Edit   func(EditArgs) (Result, error)
	Done   func(Target) (Result, error)
	Remove func(Target) (Result, error)
	Clear  func() (Result, error)
	Filter func(FilterArgs) (Result, error)
	Search func(SearchArgs) (Result, error)
	Stats  func() (Result, error)
	Notify func() (Result, error)
	Test   func() (Result, error)
}

func missing(typ Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", typ)}
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Add(*cmd.Add)
	case TypeEdit:
		if handlers.Edit == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Edit(*cmd.Edit)
	case TypeDone:
		if handlers.Done == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Done(cmd.Target.Target)
	case TypeRemove:
		if handlers.Remove == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Remove(cmd.Target.Target)
	case TypeFilter:
		if handlers.Filter == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Filter(*cmd.Filter)
	case TypeSearch:
		if handlers.Search == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Search(*cmd.Search)
	case TypeClear, TypeStats, TypeNotify, TypeTest:
		fn := map[Type]func() (Result, error){
			TypeClear:  handlers.Clear,
			TypeStats:  handlers.Stats,
			TypeNotify: handlers.Notify,
			TypeTest:   handlers.Test,
		}[cmd.Type]
		if fn == nil {
			return Result{}, missing(cmd.Type)
		}
		return fn()
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
