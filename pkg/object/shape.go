package object

// Field is one entry of a Shape: the key and attribute template for a
// property slot, plus the offset into the owning object's property
// value slice.
//
// The shape-transition-tree design exists because the interpreter's
// property-reference inline cache keys on *Shape pointer identity plus
// offset: a hit is "same shape as last time, read offset directly", a
// miss re-walks the Shape and refills the cache.
type Field struct {
	Key          PropertyKey
	Offset       int
	Writable     bool
	Enumerable   bool
	Configurable bool
	IsAccessor   bool
}

// Shape is immutable once created; adding, removing, or reconfiguring a
// property transitions the owning object to a different (possibly
// cached) Shape rather than mutating this one in place. Version is
// bumped only when a genuinely new Shape is minted for a transition that
// hasn't been seen before, so a Shape pointer plus its Version together
// uniquely identify a property-table layout for IC purposes.
type Shape struct {
	parent      *Shape
	fields      []Field
	byHash      map[string]int // hashKey -> index into fields
	transitions map[string]*Shape
	version     uint32
}

var rootShape = &Shape{byHash: map[string]int{}, transitions: map[string]*Shape{}}

// RootShape is the empty shape every freshly allocated ordinary object
// starts from.
func RootShape() *Shape { return rootShape }

func (s *Shape) Version() uint32 { return s.version }

func (s *Shape) FieldByKey(key PropertyKey) (Field, bool) {
	idx, ok := s.byHash[key.hashKey()]
	if !ok {
		return Field{}, false
	}
	return s.fields[idx], true
}

func (s *Shape) Fields() []Field { return s.fields }

// transitionKey encodes the (key, attrs) pair a transition is keyed on;
// distinct attribute combinations must not collide onto the same child
// Shape or an object could inherit the wrong attributes from a sibling's
// transition.
func transitionKey(key PropertyKey, f Field) string {
	kind := byte('d')
	if f.IsAccessor {
		kind = 'a'
	}
	flags := byte(0)
	if f.Writable {
		flags |= 1
	}
	if f.Enumerable {
		flags |= 2
	}
	if f.Configurable {
		flags |= 4
	}
	return string([]byte{kind, flags}) + key.hashKey()
}

// WithField returns the Shape obtained by appending a new field to s,
// reusing a cached transition when the same (key, attrs) pair has been
// added from this Shape before.
func (s *Shape) WithField(key PropertyKey, writable, enumerable, configurable, isAccessor bool) *Shape {
	f := Field{Key: key, Offset: len(s.fields), Writable: writable, Enumerable: enumerable, Configurable: configurable, IsAccessor: isAccessor}
	tk := transitionKey(key, f)
	if child, ok := s.transitions[tk]; ok {
		return child
	}
	child := &Shape{
		parent:      s,
		fields:      append(append([]Field{}, s.fields...), f),
		transitions: map[string]*Shape{},
		version:     s.version + 1,
	}
	child.byHash = make(map[string]int, len(child.fields))
	for i, fl := range child.fields {
		child.byHash[fl.Key.hashKey()] = i
	}
	s.transitions[tk] = child
	return child
}

// WithReconfiguredField returns a Shape identical to s except that the
// field for key carries new attributes (used by DefineOwnProperty when
// redefining an existing, configurable property in place). This always
// mints a fresh Shape since reconfiguration is rare and not worth a
// transition cache keyed on old-shape+new-attrs.
func (s *Shape) WithReconfiguredField(key PropertyKey, writable, enumerable, configurable, isAccessor bool) *Shape {
	idx, ok := s.byHash[key.hashKey()]
	if !ok {
		return s
	}
	fields := append([]Field{}, s.fields...)
	fields[idx].Writable = writable
	fields[idx].Enumerable = enumerable
	fields[idx].Configurable = configurable
	fields[idx].IsAccessor = isAccessor
	child := &Shape{parent: s.parent, fields: fields, transitions: map[string]*Shape{}, version: s.version + 1}
	child.byHash = make(map[string]int, len(fields))
	for i, fl := range fields {
		child.byHash[fl.Key.hashKey()] = i
	}
	return child
}

// WithoutField returns a Shape with key's field removed (used by
// Delete). Property insertion order for the remaining fields is
// preserved.
func (s *Shape) WithoutField(key PropertyKey) *Shape {
	idx, ok := s.byHash[key.hashKey()]
	if !ok {
		return s
	}
	fields := make([]Field, 0, len(s.fields)-1)
	for i, f := range s.fields {
		if i == idx {
			continue
		}
		f.Offset = len(fields)
		fields = append(fields, f)
	}
	child := &Shape{transitions: map[string]*Shape{}, version: s.version + 1}
	child.fields = fields
	child.byHash = make(map[string]int, len(fields))
	for i, f := range fields {
		child.byHash[f.Key.hashKey()] = i
	}
	return child
}
