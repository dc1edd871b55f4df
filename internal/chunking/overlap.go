package chunking

// OverlapCount returns how many trailing sentences fit in budget characters.
// The walk stops before the running total would exceed budget. A non-empty input
// always yields at least one sentence, even when that sentence alone is over budget.
func OverlapCount(sentences []string, budget int) int {
	if len(sentences) == 0 {
		return 0
	}

	total, count := 0, 0
	for i := len(sentences) - 1; i >= 0; i-- {
		l := Len(sentences[i])
		if total+l > budget {
			break
		}
		total += l
		count++
	}
	return max(count, 1)
}
