package drilldown

// PathType classifies a materialized entity relative to the focus.
type PathType string

const (
	PathFocus      PathType = "focus"
	PathAncestor   PathType = "ancestor"
	PathDescendant PathType = "descendant"
	PathLateral    PathType = "lateral"
)

// Direction is the lean of an edge as seen from the node being expanded.
type Direction int

const (
	// Up follows an edge toward a parent or link source.
	Up Direction = iota
	// Down follows an edge toward a child or link target.
	Down
)

func (d Direction) lean() PathType {
	if d == Up {
		return PathAncestor
	}
	return PathDescendant
}

// transitions holds every (current, direction) pair. Focus hands the lean
// through untouched; a chain keeps its label only while it keeps heading
// the same way.
var transitions = map[PathType][2]PathType{
	PathFocus:      {Up: PathAncestor, Down: PathDescendant},
	PathAncestor:   {Up: PathAncestor, Down: PathLateral},
	PathDescendant: {Up: PathLateral, Down: PathDescendant},
	PathLateral:    {Up: PathLateral, Down: PathLateral},
}

// Propagate returns the path type of a neighbour reached from a node of
// type cur by an edge leaning dir.
func Propagate(cur PathType, dir Direction) PathType {
	row, ok := transitions[cur]
	if !ok {
		return PathLateral
	}
	return row[dir]
}
