package parser

// Interner deduplicates strings that repeat heavily across a ledger, such as
// account names and currency codes. A 10k-entry file typically references a
// few dozen accounts, so interning collapses thousands of allocations into
// map lookups.
type Interner struct {
	pool map[string]string
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{pool: make(map[string]string, 64)}
}

// Intern returns a canonical copy of s, allocating only the first time a
// value is seen.
func (i *Interner) Intern(s string) string {
	if canonical, ok := i.pool[s]; ok {
		return canonical
	}
	i.pool[s] = s
	return s
}

// InternBytes interns the string form of b. The map lookup with a byte-slice
// key does not allocate; only a miss converts and stores.
func (i *Interner) InternBytes(b []byte) string {
	if canonical, ok := i.pool[string(b)]; ok {
		return canonical
	}
	s := string(b)
	i.pool[s] = s
	return s
}

// Size returns the number of distinct interned strings.
func (i *Interner) Size() int {
	return len(i.pool)
}
