package tmpl

// CallKind distinguishes component from hook calls.
type CallKind string

const (
	CallComponent CallKind = "component"
	CallHook      CallKind = "hook"
)

// Call is one component or hook invocation made while rendering.
type Call struct {
	Kind CallKind
	Name string
	// Data is the evaluated props (component) or data (hook) expression,
	// NoneValue when the tag has no argument.
	Data Value
	// Depth is the include depth the call is made at. Dispatchers that
	// render templates pass it on to Engine.RenderNested.
	Depth int
	// Template names the template containing the tag.
	Template string
}

// Dispatcher turns component and hook calls into text that is inlined
// verbatim into the output.
type Dispatcher interface {
	Dispatch(call Call) (string, error)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(call Call) (string, error)

func (f DispatcherFunc) Dispatch(call Call) (string, error) { return f(call) }
