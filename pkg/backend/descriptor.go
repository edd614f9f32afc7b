package backend

import "fmt"

// FormatDistance renders a nearby distance: "500 m away" below 1 km,
// "1.2 km away" otherwise.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%d m away", int(km*1000+0.5))
	}
	return fmt.Sprintf("%.1f km away", km)
}

// FormatSearchCount renders a search counter ("15.4k searches").
func FormatSearchCount(count int) string {
	if count >= 1000 {
		return fmt.Sprintf("%.1fk searches", float64(count)/1000)
	}
	return fmt.Sprintf("%d searches", count)
}

// TrendingDescriptor labels a trending entry; the top three are flagged.
func TrendingDescriptor(rank, searches int) string {
	if rank <= 3 {
		return fmt.Sprintf("🔥 #%d Trending • %s", rank, FormatSearchCount(searches))
	}
	return fmt.Sprintf("#%d • %s", rank, FormatSearchCount(searches))
}
