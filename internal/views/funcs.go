package views

import (
	"fmt"
	"html/template"
	"net/url"
	"time"

	"inkblog/internal/models"
	"inkblog/internal/services"
	"inkblog/internal/utils"
)

// DateLayout is the single date format used across pages.
const DateLayout = "Jan 2, 2006"

func dict(values ...interface{}) (map[string]interface{}, error) {
	if len(values)%2 != 0 {
		return nil, fmt.Errorf("invalid dict call")
	}
	d := make(map[string]interface{}, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict keys must be strings")
		}
		d[key] = values[i+1]
	}
	return d, nil
}

func timeAgo(t time.Time) string {
	seconds := int(time.Since(t).Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute") + " ago"
	case seconds < 86400:
		return plural(seconds/3600, "hour") + " ago"
	case seconds < 2592000:
		return plural(seconds/86400, "day") + " ago"
	case seconds < 31536000:
		return plural(seconds/2592000, "month") + " ago"
	}
	return plural(seconds/31536000, "year") + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FuncMap is shared by every page and fragment template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"dict": dict,
		"add": func(a, b int) int {
			return a + b
		},
		"timeAgo": timeAgo,
		"date": func(t time.Time) string {
			return t.Format(DateLayout)
		},
		"markdown":        utils.RenderMarkdown,
		"commentMarkdown": utils.RenderComment,
		"excerpt": func(md string, n int) string {
			return utils.PlainText(string(utils.RenderMarkdown(md)), n)
		},
		"urlquery": func(s string) string {
			return url.QueryEscape(s)
		},
		"categoryLabels": services.JoinActiveTitles,
		"isLike": func(t models.ReactionType) bool {
			return t == models.ReactionLike
		},
		"isDislike": func(t models.ReactionType) bool {
			return t == models.ReactionDislike
		},
	}
}
