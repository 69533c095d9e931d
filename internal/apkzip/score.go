package apkzip

import "strings"

// densityScores implements the "first density match only"
// rule: entries are checked in this order and only the first hit counts.
var densityScores = []struct {
	substr string
	points int
}{
	{"xxxhdpi", 500},
	{"xxhdpi", 400},
	{"xhdpi", 300},
	{"hdpi", 200},
	{"mdpi", 100},
}

// scoreEntry implements the §4.8 scoring table for a single candidate.
func scoreEntry(e CentralEntry) int {
	lower := strings.ToLower(e.Name)
	score := 0

	if strings.Contains(lower, "ic_launcher") {
		score += 1000
	}
	if strings.Contains(lower, "ic_launcher_foreground") {
		score += 200
	}

	if strings.Contains(lower, "app_icon") || strings.Contains(lower, "appicon") {
		score += 400
	}
	if strings.Contains(lower, "icon") || strings.Contains(lower, "logo") {
		score += 150
	}

	for _, d := range densityScores {
		if strings.Contains(lower, d.substr) {
			score += d.points
			break
		}
	}

	sizeScore := int(e.UncompressedSize / 1024)
	if sizeScore > 200 {
		sizeScore = 200
	}
	score += sizeScore

	return score
}

// extensionTiers lists the preferred-extension groups in priority order:
// .png beats .webp beats .jpg/.jpeg. The first tier with any matches wins
// outright; lower tiers are never considered once a higher one has hits.
var extensionTiers = [][]string{
	{".png"},
	{".webp"},
	{".jpg", ".jpeg"},
}

// filterByExtensionTier returns the entries matching the highest-priority
// tier that has any match at all.
func filterByExtensionTier(entries []CentralEntry) []CentralEntry {
	for _, tier := range extensionTiers {
		var matched []CentralEntry
		for _, e := range entries {
			lower := strings.ToLower(e.Name)
			for _, ext := range tier {
				if strings.HasSuffix(lower, ext) {
					matched = append(matched, e)
					break
				}
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}
	return nil
}

// pickIconCandidate filters entries to the highest-priority image
// extension present, narrows to mipmap/drawable paths when any exist, then
// returns the maximum-scoring entry, breaking ties by first-seen
// central-directory order.
func pickIconCandidate(entries []CentralEntry) (CentralEntry, bool) {
	iconLike := filterByExtensionTier(entries)
	if len(iconLike) == 0 {
		return CentralEntry{}, false
	}

	pool := iconLike
	var resourceScoped []CentralEntry
	for _, e := range iconLike {
		lower := strings.ToLower(e.Name)
		if strings.Contains(lower, "mipmap") || strings.Contains(lower, "drawable") {
			resourceScoped = append(resourceScoped, e)
		}
	}
	if len(resourceScoped) > 0 {
		pool = resourceScoped
	}

	best := pool[0]
	bestScore := scoreEntry(best)
	for _, e := range pool[1:] {
		if s := scoreEntry(e); s > bestScore {
			best, bestScore = e, s
		}
	}

	return best, true
}
