package translatex

// DiffResult is the difference between the unique-text sets of two chunk
// payloads for the same page. Useful for previewing what a content edit
// will cost in fresh translations before the dictionary fills the gaps.
type DiffResult struct {
	Added     []string // texts only in the new version
	Removed   []string // texts only in the old version
	Unchanged []string // texts present in both
}

// DiffStats summarizes a diff.
type DiffStats struct {
	Added     int
	Removed   int
	Unchanged int
}

// Stats returns summary statistics for the diff.
func (d *DiffResult) Stats() DiffStats {
	return DiffStats{
		Added:     len(d.Added),
		Removed:   len(d.Removed),
		Unchanged: len(d.Unchanged),
	}
}

// HasChanges reports whether the two versions differ at all.
func (d *DiffResult) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// NeedsTranslation returns the strings that have no dictionary entry yet:
// everything the new version added.
func (d *DiffResult) NeedsTranslation() []string {
	return d.Added
}

// DiffTexts compares the deduplicated text lists of two payload versions.
// Matching is by exact content hash, the same identity the dictionary uses.
func DiffTexts(oldTexts, newTexts []string) *DiffResult {
	result := &DiffResult{}

	oldByHash := make(map[string]string, len(oldTexts))
	newByHash := make(map[string]string, len(newTexts))
	for _, t := range oldTexts {
		oldByHash[HashText(t)] = t
	}
	for _, t := range newTexts {
		newByHash[HashText(t)] = t
	}

	for _, t := range oldTexts {
		if _, ok := newByHash[HashText(t)]; ok {
			result.Unchanged = append(result.Unchanged, t)
		} else {
			result.Removed = append(result.Removed, t)
		}
	}
	for _, t := range newTexts {
		if _, ok := oldByHash[HashText(t)]; !ok {
			result.Added = append(result.Added, t)
		}
	}

	return result
}
