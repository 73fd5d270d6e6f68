package medner

import "time"

// Hooks receives pipeline events for metrics.  Implementations must be safe
// for concurrent use.
type Hooks interface {
	ChunkPlanned(kind string)
	InferenceDone(d time.Duration, err error)
	SoftFix(kind string)
	LocatorMiss()
	NormalizerFallback(reason string)
	EntityEmitted(entityType string)
	DocumentDone(d time.Duration, err error)
}

// NopHooks discards every event.
type NopHooks struct{}

func (NopHooks) ChunkPlanned(string)                {}
func (NopHooks) InferenceDone(time.Duration, error) {}
func (NopHooks) SoftFix(string)                     {}
func (NopHooks) LocatorMiss()                       {}
func (NopHooks) NormalizerFallback(string)          {}
func (NopHooks) EntityEmitted(string)               {}
func (NopHooks) DocumentDone(time.Duration, error)  {}

//Personal.AI order the ending
