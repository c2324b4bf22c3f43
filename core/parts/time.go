package parts

// TimeUnit returns the length of one time step. The default is 1.
func (p *Part) TimeUnit() int { return p.timeUnit }

// SetTimeUnit sets the length of one time step.
func (p *Part) SetTimeUnit(u int) {
	if u <= 0 {
		u = 1
	}
	p.timeUnit = u
}

// StepTime returns t moved n time steps. n may be negative.
func (p *Part) StepTime(t, n int) int { return t + n*p.timeUnit }

// Times returns n consecutive time steps starting at t0. It is empty for
// n <= 0.
func (p *Part) Times(t0, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = p.StepTime(t0, i)
	}
	return out
}

// TimesBetween returns the time steps from start up to and including end.
func (p *Part) TimesBetween(start, end int) []int {
	var out []int
	for t := start; t <= end; t = p.StepTime(t, 1) {
		out = append(out, t)
	}
	return out
}
