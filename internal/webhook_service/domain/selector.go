package domain

// SelectorKind discriminates the lifecycle-operation target variants.
type SelectorKind int

const (
	// SelectAll targets every registration owned by the acting user in the room.
	SelectAll SelectorKind = iota
	// SelectByID targets one registration by its numeric identity.
	SelectByID
	// SelectByURL targets the owned registration with a matching URL.
	SelectByURL
)

// Selector identifies which outgoing registration(s) a lifecycle operation
// targets. It is resolved to a concrete set of rows before any mutation.
type Selector struct {
	Kind SelectorKind
	ID   int64
	URL  string
}

func AllSelector() Selector            { return Selector{Kind: SelectAll} }
func IDSelector(id int64) Selector     { return Selector{Kind: SelectByID, ID: id} }
func URLSelector(url string) Selector  { return Selector{Kind: SelectByURL, URL: url} }
