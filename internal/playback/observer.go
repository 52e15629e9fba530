package playback

// Observer receives every Sample the controller emits.
type Observer interface {
	OnSample(Sample)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Sample)

func (f ObserverFunc) OnSample(s Sample) { f(s) }

// Observers fans a Sample out to each non-nil observer in order.
type Observers []Observer

func (o Observers) OnSample(s Sample) {
	for _, obs := range o {
		if obs != nil {
			obs.OnSample(s)
		}
	}
}
