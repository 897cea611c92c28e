package stats

// LinearValue interpolates y for x on the line through (x1, y1) and (x2, y2).
func LinearValue(x, x1, y1, x2, y2 float64) float64 {
	return (x-x1)/(x2-x1)*(y2-y1) + y1
}

// Sentiment is the share of likes among all reactions, in percent.
func Sentiment(likes, dislikes int64) float64 {
	total := likes + dislikes
	if total < 1 {
		total = 1
	}
	return float64(likes) / float64(total) * 100
}

// EngageRate relates reactions and comments to views, in percent.
// Values above 100% come from upstream double counting; between 100 and 1000
// they are clamped, beyond that they are considered garbage.
func EngageRate(likes, dislikes, comments, views int64) float64 {
	if views == 0 {
		views = 1
	}
	if likes+dislikes >= views {
		return 0
	}
	plain := float64(likes+dislikes+comments) / float64(views) * 100
	switch {
	case plain <= 100:
		return plain
	case plain <= 1000:
		return 100
	default:
		return 0
	}
}
