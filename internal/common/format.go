package common

import (
	"fmt"
	"strings"

	"loyalty-analytics-go/internal/models"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintSeparatorNewline prints a separator with a newline before it
func PrintSeparatorNewline(char string, width int) {
	fmt.Println("\n" + strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// PrintField prints an aligned label and value inside a box section
func PrintField(label string, value any) {
	fmt.Printf("│  %-28s %v\n", label+":", value)
}

// FormatCoins renders a coin amount with two decimals
func FormatCoins(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// PrintLeaderboard prints ranked rows as a box-drawn list
func PrintLeaderboard(title string, entries []models.LeaderboardEntry) {
	fmt.Printf("%s (%d)\n", title, len(entries))
	PrintBoxSeparator(40)
	if len(entries) == 0 {
		fmt.Println(BoxPrefix(true) + "no entries")
		return
	}
	for i, e := range entries {
		isLast := i == len(entries)-1
		fmt.Printf("%s#%d %s (%s)\n", BoxPrefix(isLast), e.Rank, e.UserName, e.UserId)
		detail := fmt.Sprintf("value %s", FormatCoins(e.Value))
		if e.Count > 0 || e.Amount > 0 {
			detail = fmt.Sprintf("%s, count %d, amount %s", detail, e.Count, FormatCoins(e.Amount))
		}
		fmt.Println(BoxDetailPrefix(isLast) + "   " + detail)
	}
}
