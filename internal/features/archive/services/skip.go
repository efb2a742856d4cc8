package services

// ArtifactKind identifies the class of a published file for the skip
// policy. Only pages and day counters are ever skipped; every other
// artifact is rewritten on each build.
type ArtifactKind int

const (
	KindPage ArtifactKind = iota
	KindDayCounter
)

// SkipInput describes the artifact about to be written
type SkipInput struct {
	Kind     ArtifactKind
	Filename string
	// Frontier marks artifacts that are always rewritten: a month's
	// unsuffixed page or the most recent day counter.
	Frontier bool
	// Messages is the page size actually produced, for KindPage.
	Messages int
}

// SkipPolicy decides whether an already published artifact can be left
// as is on an incremental build. It never removes files.
type SkipPolicy struct {
	Incremental bool
	PerPage     int
	Exists      func(filename string) bool
}

// ShouldSkip reports whether the artifact can be skipped
func (p SkipPolicy) ShouldSkip(in SkipInput) bool {
	if !p.Incremental || in.Frontier || p.Exists == nil {
		return false
	}

	switch in.Kind {
	case KindDayCounter:
		return p.Exists(in.Filename)
	case KindPage:
		return in.Messages == p.PerPage && p.Exists(in.Filename)
	}
	return false
}
