package util

import "regexp"

// Ordered most specific first; the first match wins.
var salaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$[\d,]+k\s*[-–]\s*\$[\d,]+k`),
	regexp.MustCompile(`\$[\d,]+\s*[-–]\s*\$[\d,]+`),
	regexp.MustCompile(`\$[\d,]+\s*-\s*[\d,]+k`),
	regexp.MustCompile(`[\d,]+k\s*[-–]\s*[\d,]+k`),
	regexp.MustCompile(`\$[\d,]{4,}`),
	regexp.MustCompile(`\b[\d,]+k\b`),
}

// ExtractSalary pulls the first salary-looking fragment out of free text.
func ExtractSalary(text string) string {
	for _, re := range salaryPatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}
