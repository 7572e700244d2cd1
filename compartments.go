package epinet

// compartment is a polymorphic "insert and random-remove" container for
// one disease state (spec.md §3, §9's "Compartment membership" note): a
// dense slice of agent indices plus an inverse agent->index-in-slice map,
// so removal is a swap-with-last followed by a truncate, O(1) regardless
// of where the agent sits in the slice. Ordering within the slice is not
// observable (spec.md §4.5's edge-case note), matching the teacher's own
// `RemovePathogensByID` swap pattern but upgraded from its O(n) shift to
// a true O(1) swap-remove.
type compartment struct {
	members []int32
	pos     map[int32]int32 // agent -> index within members
}

func newCompartment() *compartment {
	return &compartment{pos: make(map[int32]int32)}
}

// Len returns the number of agents currently in this compartment.
func (c *compartment) Len() int {
	return len(c.members)
}

// Add appends agent id to the compartment.
func (c *compartment) Add(id int) {
	c.pos[int32(id)] = int32(len(c.members))
	c.members = append(c.members, int32(id))
}

// Remove removes agent id from the compartment via swap-with-last.
// Panics if id is not a member, which would indicate an (I4) violation.
func (c *compartment) Remove(id int) {
	i, ok := c.pos[int32(id)]
	if !ok {
		panic("epinet: compartment.Remove: agent not a member")
	}
	last := int32(len(c.members) - 1)
	movedAgent := c.members[last]
	c.members[i] = movedAgent
	c.members = c.members[:last]
	if movedAgent != int32(id) {
		c.pos[movedAgent] = i
	}
	delete(c.pos, int32(id))
}

// At returns the agent index at slice position i (not a stable handle
// across mutation; used for random draws within the compartment).
func (c *compartment) At(i int) int {
	return int(c.members[i])
}

// Contains reports whether agent id is currently in this compartment.
func (c *compartment) Contains(id int) bool {
	_, ok := c.pos[int32(id)]
	return ok
}

// RandomMember returns a uniformly-random agent index currently in the
// compartment using the supplied RNG, satisfying spec.md §4.5's
// "Pick a uniformly-random agent from compartment s's member list".
func (c *compartment) RandomMember(rng *rngSource) int {
	return c.At(rng.IntN(c.Len()))
}

// Members returns a read-only view of the compartment's current
// membership. Callers must not retain the slice across mutation.
func (c *compartment) Members() []int32 {
	return c.members
}
