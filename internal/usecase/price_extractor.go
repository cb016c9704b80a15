package usecase

import (
	"log"
	"regexp"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/fastlane/backend/internal/domain"
)

// pricePatterns are tried in order; the first plausible capture wins.
// Spacing also matches Unicode spaces such as NBSP.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)[\s\p{Zs}]*₪`),                     // "8 ₪"
	regexp.MustCompile(`₪[\s\p{Zs}]*(\d+)`),                     // "₪ 8"
	regexp.MustCompile(`המחיר[\s\p{Zs}]+עכשיו[\s\p{Zs}]+(\d+)`), // "המחיר עכשיו 8"
	regexp.MustCompile(`המחיר[\s\p{Zs}]+כעת[\s\p{Zs}]+(\d+)`),   // "המחיר כעת 8"
	regexp.MustCompile(`המחיר.*?(\d+)[\s\p{Zs}]*₪`),             // "המחיר ... 8 ₪"
}

// ExtractPrice finds the toll price in visible page text.
// It returns false when no pattern yields a price inside the plausibility bound.
func ExtractPrice(text string) (price int, ok bool) {
	if text == "" {
		return 0, false
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[EXTRACT] Recovered while extracting price: %v", r)
			price, ok = 0, false
		}
	}()

	for _, pattern := range pricePatterns {
		loc := pattern.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}

		digits := text[loc[2]:loc[3]]
		n, err := strconv.Atoi(digits)
		if err == nil && negated(text, loc[2]) {
			n = -n
		}
		if err != nil || n < domain.MinPrice || n > domain.MaxPrice {
			log.Printf("[EXTRACT] Price %q seems unreasonable, skipping", digits)
			continue
		}

		log.Printf("[EXTRACT] Extracted price: %d NIS", n)
		return n, true
	}

	log.Printf("[EXTRACT] No price found in page text")
	return 0, false
}

// negated reports whether the numeral starting at i carries a minus sign.
// A dash between two numbers ("10-20") is a range, not a sign.
func negated(text string, i int) bool {
	if i == 0 || text[i-1] != '-' {
		return false
	}
	if i-1 == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i-1])
	return !unicode.IsDigit(prev)
}
