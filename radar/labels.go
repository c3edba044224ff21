package radar

import (
	"fmt"
	"math"
	"strings"

	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
)

// Labels are the axis names in chart order.
type Labels [axes]string

var labelSets = map[string]Labels{
	"ja": {"事業相性", "課題解決", "トレンド", "成長適合", "緊急度", "リソース"},
	"en": {"Synergy", "Solution", "Trends", "Growth", "Urgency", "Resources"},
}

var chartTitles = map[string]string{
	"ja": "マッチング相性チャート",
	"en": "Match compatibility chart",
}

// LabelsFor returns the labels of locale, falling back to Japanese.
func LabelsFor(locale string) Labels {
	if l, ok := labelSets[normalizeLocale(locale)]; ok {
		return l
	}
	return labelSets["ja"]
}

func normalizeLocale(locale string) string {
	locale = strings.ToLower(locale)
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return locale
}

// A11y is the accessible description of a chart surface.
type A11y struct {
	Role     string `json:"role"`
	Alt      string `json:"alt"`
	TabIndex int    `json:"tabindex"`
}

// Describe builds the text alternative, one "label: value%" per factor.
func Describe(locale string, data *scoring.Breakdown) A11y {
	labels := LabelsFor(locale)
	values := resolve(data).Values()

	parts := make([]string, axes)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s: %d%%", labels[i], percent(values[i]))
	}
	title, ok := chartTitles[normalizeLocale(locale)]
	if !ok {
		title = chartTitles["ja"]
	}
	return A11y{
		Role:     "img",
		Alt:      title + " - " + strings.Join(parts, ", "),
		TabIndex: 0,
	}
}

// TooltipItem is one row of the hover tooltip. Bar is the bar width in percent.
type TooltipItem struct {
	Key   scoring.Factor `json:"key"`
	Label string         `json:"label"`
	Value int            `json:"value"`
	Bar   float64        `json:"bar"`
}

// TooltipFor lists every factor with its localized label.
func TooltipFor(locale string, data *scoring.Breakdown) []TooltipItem {
	labels := LabelsFor(locale)
	b := resolve(data)

	items := make([]TooltipItem, axes)
	for i, f := range scoring.Factors {
		v := b.Get(f)
		items[i] = TooltipItem{Key: f, Label: labels[i], Value: percent(v), Bar: v}
	}
	return items
}

// Tooltip box estimate used for placement.
const (
	TooltipWidth  = 180.0
	TooltipHeight = 150.0
	tooltipOffset = 10.0
)

// PlaceTooltip positions a w×h tooltip next to the pointer and flips it to the
// other side of the pointer when it would leave the viewport.
func PlaceTooltip(pointer Point, w, h, viewportW, viewportH float64) Point {
	x := pointer.X + tooltipOffset
	y := pointer.Y + tooltipOffset
	if viewportW > 0 && x+w > viewportW {
		x = pointer.X - w - tooltipOffset
	}
	if viewportH > 0 && y+h > viewportH {
		y = pointer.Y - h - tooltipOffset
	}
	return Point{X: math.Max(0, x), Y: math.Max(0, y)}
}

func resolve(data *scoring.Breakdown) scoring.Breakdown {
	if data == nil {
		return scoring.NeutralBreakdown()
	}
	return scoring.Validate(*data)
}

func percent(v float64) int {
	return int(math.Round(v))
}
