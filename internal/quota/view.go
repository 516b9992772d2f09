package quota

// View is the read-only projection the Selector consumes, breaking the
// circular Quota<->Accounts dependency called out in spec §9: the Selector
// depends on this narrow interface, not on the Tracker's write path.
type View interface {
	// Lookup returns the cached quota entry for (accountID, model), if any.
	Lookup(accountID, model string) (Entry, bool)
}

// Lookup implements View directly on Tracker.
func (t *Tracker) Lookup(accountID, model string) (Entry, bool) {
	return t.Get(accountID, model)
}
