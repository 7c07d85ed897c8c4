package mempool

// SetMaxSize changes a pool's item capacity without evicting; callers that
// want the new capacity enforced immediately should follow up with Evict.
func (p *Pool) SetMaxSize(maxSize int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxSize = maxSize
}

// Evict trims a pool down to maxSize by dropping the lowest fee_per_cost
// entries, for callers that shrink capacity after the pool was built
// (e.g. a config reload). admit already enforces the cap on every insert;
// this is for out-of-band capacity changes.
func (p *Pool) Evict(maxSize int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	evicted := 0
	for len(p.items) > maxSize {
		name, _ := p.findLowestFeePerCostLocked()
		p.removeLocked(name)
		evicted++
	}
	return evicted
}
