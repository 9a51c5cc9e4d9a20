package trace

// Labeled stamps every event with the program name, so the output of
// programs resolved concurrently stays attributable.
func Labeled(t Tracer, program string) Tracer {
	if t == nil || !t.Enabled() {
		return Nop
	}
	return &labeled{Tracer: t, program: program}
}

type labeled struct {
	Tracer
	program string
}

func (l *labeled) Emit(ev *Event) {
	if ev.Program == "" {
		ev.Program = l.program
	}
	l.Tracer.Emit(ev)
}
