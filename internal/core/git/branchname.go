package git

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/calciferhq/calcifer/internal/core/workitem"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 30

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// stripMarks removes diacritics so "Réseau" slugs to "reseau" instead of
// losing the character entirely.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify converts a work item title to a branch-safe slug.
// "Add nginx monitor" -> "add-nginx-monitor"
func Slugify(title string) string {
	s := title
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	s = strings.ToLower(strings.TrimSpace(s))
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	return s
}

// BranchName generates the deterministic branch name for a work item:
// <category>/<actionType>/<title-slug>-<timestamp>. The timestamp suffix
// keeps identically-titled items on distinct branches.
//
// Example: "service/new/add-nginx-monitor-20260826143000"
func BranchName(category workitem.Category, action workitem.ActionType, title string, now time.Time) string {
	slug := Slugify(title)
	if slug == "" {
		slug = "work"
	}
	return fmt.Sprintf("%s/%s/%s-%s", category, action, slug, now.Format("20060102150405"))
}
