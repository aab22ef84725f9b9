package store

// StringTable interns large text constants behind a stable handle, adapted
// directly from the teacher's StringTable (string.go): reference counted so
// a CopyRange that duplicates a text literal into many cells doesn't
// duplicate storage, and so deleting the last referencing cell actually
// frees the string.
type StringTable struct {
	ids     map[string]uint32
	strings map[uint32]string
	refs    map[uint32]int
	nextID  uint32
}

// NewStringTable creates an empty table; handle 0 is reserved for "no
// string"/empty text so callers can use the zero value as a sentinel.
func NewStringTable() *StringTable {
	return &StringTable{
		ids:     make(map[string]uint32),
		strings: make(map[uint32]string),
		refs:    make(map[uint32]int),
		nextID:  1,
	}
}

// Intern adds s or bumps its reference count if already present, returning
// its handle.
func (st *StringTable) Intern(s string) uint32 {
	if id, ok := st.ids[s]; ok {
		st.refs[id]++
		return id
	}
	id := st.nextID
	st.nextID++
	st.ids[s] = id
	st.strings[id] = s
	st.refs[id] = 1
	return id
}

// Get resolves a handle back to its string.
func (st *StringTable) Get(id uint32) (string, bool) {
	s, ok := st.strings[id]
	return s, ok
}

// Release decrements the reference count for id, freeing it once it
// reaches zero. Returns true if the string was freed.
func (st *StringTable) Release(id uint32) bool {
	s, ok := st.strings[id]
	if !ok {
		return false
	}
	st.refs[id]--
	if st.refs[id] <= 0 {
		delete(st.strings, id)
		delete(st.ids, s)
		delete(st.refs, id)
		return true
	}
	return false
}

// Count returns the number of distinct interned strings.
func (st *StringTable) Count() int { return len(st.strings) }
