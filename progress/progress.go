package progress

// Observer receives the engine's outbound notifications. Calls arrive on the
// engine's goroutine and must not block; UI implementations hand the events
// over to their own loop.
type Observer interface {
	// Counting signals the start of a file enumeration.
	Counting()
	// FileCount reports the size of the enumerated batch.
	FileCount(n int)
	// Progress is monotonically non-decreasing within a workflow. The unit is
	// bytes for hashing-bound workflows and items for copy-bound ones.
	Progress(partial, total int64)
	// SecondaryProgress reports sub-progress in the 0..1 range, e.g. inside a
	// single file copy or an external tool run.
	SecondaryProgress(fraction float64)
	// File reports a processed file; isNew is true on first encounter.
	File(path string, isNew bool)
	// FileMoved reports a rename/move detection.
	FileMoved(oldPath, newPath string)
	// Message reports informational text.
	Message(text string)
	// Error reports a per-file or workflow error.
	Error(text string)
}

// Funcs adapts a set of optional callbacks to the Observer interface.
// Nil fields are no-ops, so callers wire only the events they care about.
type Funcs struct {
	OnCounting          func()
	OnFileCount         func(n int)
	OnProgress          func(partial, total int64)
	OnSecondaryProgress func(fraction float64)
	OnFile              func(path string, isNew bool)
	OnFileMoved         func(oldPath, newPath string)
	OnMessage           func(text string)
	OnError             func(text string)
}

var _ Observer = (*Funcs)(nil)

func (f *Funcs) Counting() {
	if f.OnCounting != nil {
		f.OnCounting()
	}
}

func (f *Funcs) FileCount(n int) {
	if f.OnFileCount != nil {
		f.OnFileCount(n)
	}
}

func (f *Funcs) Progress(partial, total int64) {
	if f.OnProgress != nil {
		f.OnProgress(partial, total)
	}
}

func (f *Funcs) SecondaryProgress(fraction float64) {
	if f.OnSecondaryProgress != nil {
		f.OnSecondaryProgress(fraction)
	}
}

func (f *Funcs) File(path string, isNew bool) {
	if f.OnFile != nil {
		f.OnFile(path, isNew)
	}
}

func (f *Funcs) FileMoved(oldPath, newPath string) {
	if f.OnFileMoved != nil {
		f.OnFileMoved(oldPath, newPath)
	}
}

func (f *Funcs) Message(text string) {
	if f.OnMessage != nil {
		f.OnMessage(text)
	}
}

func (f *Funcs) Error(text string) {
	if f.OnError != nil {
		f.OnError(text)
	}
}

// Nop is a no-op observer for callers that don't need notifications.
var Nop Observer = &Funcs{}
