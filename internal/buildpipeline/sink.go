package buildpipeline

// ChannelSink forwards events into Ch, blocking while the reader is busy.
// A nil channel drops events.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch != nil {
		s.Ch <- ev
	}
}
